package docker

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ComposeFile represents a minimal Docker Compose file.
type ComposeFile struct {
	Name     string                    `yaml:"name"`
	Services map[string]ComposeService `yaml:"services"`
}

// ComposeService is a minimal service definition from a compose file.
type ComposeService struct {
	Image         string            `yaml:"image"`
	Ports         []string          `yaml:"ports"`
	ContainerName string            `yaml:"container_name"`
	Labels        map[string]string `yaml:"labels"`
}

// ParseComposeFile reads a compose.yml and returns service definitions.
func ParseComposeFile(path string) (*ComposeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}

	var cf ComposeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse compose file: %w", err)
	}
	return &cf, nil
}

// ServiceNames returns the service names in the compose file, sorted.
func (cf *ComposeFile) ServiceNames() []string {
	names := make([]string, 0, len(cf.Services))
	for name := range cf.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type containerDef struct {
	Name      string
	Container string
	Service   string
	Image     string
	Ports     []string
}

// AutoImport lists the containers for compose services not in skip, in
// service name order. Without container_name, the name compose would
// generate for the first replica is used.
func AutoImport(cf *ComposeFile, skip map[string]bool, project string) []containerDef {
	var defs []containerDef
	for _, name := range cf.ServiceNames() {
		if skip[name] {
			continue
		}
		svc := cf.Services[name]
		containerName := svc.ContainerName
		if containerName == "" && project != "" {
			containerName = fmt.Sprintf("%s-%s-1", project, name)
		}
		defs = append(defs, containerDef{
			Name:      name,
			Container: containerName,
			Service:   name,
			Image:     svc.Image,
			Ports:     svc.Ports,
		})
	}
	return defs
}
