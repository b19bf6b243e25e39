package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/modoterra/livefeed/internal/buildinfo"
	"github.com/modoterra/livefeed/pkg/config"
	"github.com/modoterra/livefeed/pkg/config/presets"
	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/daemon/service"
	"github.com/modoterra/livefeed/pkg/transport/uds"
	tuimodel "github.com/modoterra/livefeed/pkg/tui/model"
)

var (
	socketPath string
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "livefeed",
	Short: "Watch live data feeds served by livefeedd",
	Long:  "livefeed is a TUI + CLI for livefeedd, a daemon that turns configured data sources on while someone is watching them and off when nobody is.",
	RunE:  runTUI,

	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", config.DefaultSocket, "daemon socket path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to livefeed.yaml")

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(feedsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serviceCmd)
}

// --- Root: TUI ---

func runTUI(_ *cobra.Command, _ []string) error {
	ensureDaemon()
	app := tuimodel.New(socketPath)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func daemonArgs() []string {
	return []string{"--config", configPath, "--socket", socketPath}
}

func ensureDaemon() {
	if _, err := os.Stat(socketPath); err == nil {
		return
	}
	cmd := exec.Command("livefeedd", daemonArgs()...)
	cmd.Start()
	for i := 0; i < 30; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	fmt.Fprintln(os.Stderr, "warning: could not start daemon, continuing anyway")
}

func dialDaemon() (*uds.Client, error) {
	client, err := uds.Dial(socketPath)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to daemon at %s: %w", socketPath, err)
	}
	return client, nil
}

func call(client *uds.Client, timeout time.Duration, method string, in, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.Call(ctx, method, in, out)
}

// --- Ping ---

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check if daemon is running",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := dialDaemon()
		if err != nil {
			return err
		}
		defer client.Close()

		var pong uds.PingResponse
		if err := call(client, 2*time.Second, uds.MethodPing, nil, &pong); err != nil {
			return err
		}
		if pong.Pong {
			fmt.Fprintf(cmd.OutOrStdout(), "pong ✓ (livefeedd %s)\n", pong.Version)
		}
		return nil
	},
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "livefeed %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	},
}

// --- Daemon ---

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start daemon in foreground (for debugging)",
	Long:  "Normally the TUI auto-spawns the daemon. Use this to run it manually.",
	RunE: func(_ *cobra.Command, _ []string) error {
		cmd := exec.Command("livefeedd", daemonArgs()...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	},
}

// --- Feeds ---

var feedsJSON bool

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "List configured feeds and their activation state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := dialDaemon()
		if err != nil {
			return err
		}
		defer client.Close()

		var resp uds.ListFeedsResponse
		if err := call(client, 2*time.Second, uds.MethodListFeeds, nil, &resp); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if feedsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(resp.Feeds)
		}

		if len(resp.Feeds) == 0 {
			fmt.Fprintln(out, "no feeds")
			return nil
		}

		fmt.Fprintf(out, "%-20s %-10s %-8s %-8s %s\n", "NAME", "KIND", "STATE", "DELAY", "SUBS")
		for _, f := range resp.Feeds {
			fmt.Fprintf(out, "%-20s %-10s %-8s %-8s %d/%d\n", f.Name, f.Kind, feedState(f), f.Delay, f.DataSubs, f.ErrorSubs)
		}
		return nil
	},
}

func feedState(f uds.FeedInfo) string {
	switch {
	case f.Active:
		return "active"
	case f.Provider == string(core.StatusON):
		return "errors"
	default:
		return "idle"
	}
}

func init() {
	feedsCmd.Flags().BoolVar(&feedsJSON, "json", false, "output as JSON")
}

// --- Watch ---

var (
	watchErrors bool
	watchCount  int
	watchFields []string
)

var watchCmd = &cobra.Command{
	Use:   "watch <feed>",
	Short: "Stream a feed's values until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialDaemon()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		events := make(chan uds.FeedEvent, 64)
		stopped := make(chan struct{})
		var once sync.Once
		halt := func() { once.Do(func() { close(stopped) }) }
		defer halt()
		client.OnEvent(func(m uds.Message) {
			var evt uds.FeedEvent
			if m.UnmarshalData(&evt) != nil {
				return
			}
			select {
			case events <- evt:
			case <-stopped:
			}
		})

		channels := []string{string(core.ChannelData)}
		if watchErrors {
			channels = append(channels, string(core.ChannelError))
		}
		var sub uds.SubscribeResponse
		req := uds.SubscribeRequest{Feed: args[0], Channels: channels, Fields: watchFields}
		if err := call(client, 10*time.Second, uds.MethodSubscribe, req, &sub); err != nil {
			return err
		}

		seen := 0
		for watchCount <= 0 || seen < watchCount {
			select {
			case evt := <-events:
				printEvent(cmd.OutOrStdout(), cmd.ErrOrStderr(), evt)
				if evt.Error == "" {
					seen++
				}
			case <-client.Done():
				return uds.ErrClosed
			case <-ctx.Done():
				return nil
			}
		}

		halt()
		ids := make([]string, 0, len(sub.Subscriptions))
		for _, s := range sub.Subscriptions {
			ids = append(ids, s.ID)
		}
		return call(client, 2*time.Second, uds.MethodUnsubscribe, uds.UnsubscribeRequest{IDs: ids}, nil)
	},
}

func printEvent(out, errOut io.Writer, evt uds.FeedEvent) {
	if evt.Error != "" {
		fmt.Fprintf(errOut, "error: %s\n", evt.Error)
		return
	}
	var line core.Line
	if json.Unmarshal(evt.Data, &line) == nil && line.Line != "" {
		fmt.Fprintln(out, line.Line)
		return
	}
	fmt.Fprintln(out, string(evt.Data))
}

func init() {
	watchCmd.Flags().BoolVar(&watchErrors, "errors", false, "also print the feed's errors")
	watchCmd.Flags().IntVar(&watchCount, "count", 0, "exit after N values (0 = until interrupted)")
	watchCmd.Flags().StringSliceVar(&watchFields, "fields", nil, "keep only these fields of each value")
}

// --- Get ---

var (
	getFields []string
	getFresh  bool
)

var getCmd = &cobra.Command{
	Use:   "get <feed>",
	Short: "Print a feed's current value, waiting for one if the feed is idle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialDaemon()
		if err != nil {
			return err
		}
		defer client.Close()

		var resp uds.GetCurrentResponse
		req := uds.GetCurrentRequest{Feed: args[0], Fields: getFields, Fresh: getFresh}
		if err := call(client, 15*time.Second, uds.MethodGetCurrent, req, &resp); err != nil {
			return err
		}
		if !req.Fresh && string(resp.Data) == "null" {
			req.Fresh = true
			if err := call(client, 15*time.Second, uds.MethodGetCurrent, req, &resp); err != nil {
				return err
			}
		}

		var v any
		if err := json.Unmarshal(resp.Data, &v); err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	},
}

func init() {
	getCmd.Flags().StringSliceVar(&getFields, "fields", nil, "keep only these fields (default: the feed's configured fields)")
	getCmd.Flags().BoolVar(&getFresh, "fresh", false, "wait for the next value even when one is cached")
}

// --- Config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage livefeed.yaml",
}

var (
	configInitRoot   string
	configInitOutput string
)

var configInitCmd = &cobra.Command{
	Use:   "init [preset]",
	Short: "Generate a livefeed.yaml",
	Long:  "Available presets: " + strings.Join(presets.Names, ", "),
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		preset := "example"
		if len(args) > 0 {
			preset = args[0]
		}
		c, err := presets.Generate(preset, configInitRoot)
		if err != nil {
			return err
		}
		if err := config.Save(c, configInitOutput); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Generated %s with %d feeds\n", configInitOutput, len(c.Feeds))
		names := make([]string, 0, len(c.Feeds))
		for name := range c.Feeds {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %s (%s)\n", name, c.Feeds[name].Kind)
		}
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a livefeed.yaml",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) > 0 {
			path = args[0]
		}

		c, err := config.Load(path)
		if err != nil {
			return err
		}

		errs := config.Validate(c)
		if len(errs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d feeds)\n", path, len(c.Feeds))
			return nil
		}

		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "  • %s\n", e)
		}
		return fmt.Errorf("%s: %d error(s)", path, len(errs))
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitRoot, "root", ".", "project root directory")
	configInitCmd.Flags().StringVar(&configInitOutput, "output", config.DefaultPath, "output file path")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
}

// --- Service ---

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the livefeedd systemd user service",
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install and start livefeedd as a user service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
		if err := service.Install(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "livefeedd service installed ✓")
		return nil
	},
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop and remove the livefeedd user service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := service.Uninstall(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "livefeedd service removed ✓")
		return nil
	},
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon socket and service state",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), service.Status(socketPath))
	},
}

func init() {
	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)
	serviceCmd.AddCommand(serviceStatusCmd)
}
