// vrrpctl provisions and tears down the VxLAN/VRRP gateway overlay on
// the local node, driven by the declarative config the front-end stores.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yvivekan79/vrrp/internal/config"
	"github.com/yvivekan79/vrrp/internal/engine"
	"github.com/yvivekan79/vrrp/internal/logging"
)

// envFile carries operator overrides such as VRRP_PROBE_TARGET.
const envFile = "/etc/vrrp/vrrp.env"

func main() {
	if err := rootCmd().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(engine.ExitCode(err))
	}
}

func rootCmd() *cobra.Command {
	var debug bool
	var configPath string

	root := &cobra.Command{
		Use:           "vrrpctl",
		Short:         "VxLAN overlay and VRRP failover for the local gateway node",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(slog.LevelInfo, debug)
			loadEnvFile()
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Group config path")

	root.AddCommand(createCmd(&configPath))
	root.AddCommand(deleteCmd(&configPath))
	root.AddCommand(statusCmd(&configPath))
	return root
}

func createCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Provision the overlay, activate failover, and verify reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return engine.New(*configPath).Create(ctx)
		},
	}
}

func deleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Tear the overlay down and clear the failover daemon config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return engine.New(*configPath).Delete(ctx)
		},
	}
}

func statusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report config, overlay, bridge, and daemon state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := engine.New(*configPath).Status(cmd.Context())
			printReport(r)
			// Best-effort reporting: findings never fail the command.
			return nil
		},
	}
}

func printReport(r engine.Report) {
	kv := func(key, value string) {
		fmt.Printf("%-16s %s\n", key+":", value)
	}

	if !r.ConfigLoaded {
		kv("config", "unavailable ("+r.ConfigError+")")
		return
	}
	kv("config", "loaded")
	kv("group", fmt.Sprintf("%d (vrid %d, vip %s)", r.Group.GroupID, r.Group.VRID, r.Group.VIP))

	if !r.NodeResolved {
		kv("local node", "unresolved ("+r.ResolveError+")")
		return
	}
	kv("local node", fmt.Sprintf("%s (%s)", r.Node.SiteID, r.Node.WANIP))
	kv("overlay", overlayLine(r))
	kv("bridge addrs", prefixLine(r))
	kv("keepalived", onOff(r.DaemonActive, "active", "inactive"))
}

func overlayLine(r engine.Report) string {
	if r.Overlay.Name == "" {
		return "absent"
	}
	state := onOff(r.OverlayUp, "up", "down")
	if r.Overlay.Master != "" {
		state += ", master " + r.Overlay.Master
	}
	return fmt.Sprintf("%s (%s)", r.Overlay.Name, state)
}

func prefixLine(r engine.Report) string {
	if len(r.BridgeAddrs) == 0 {
		return "none"
	}
	parts := make([]string, len(r.BridgeAddrs))
	for i, p := range r.BridgeAddrs {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

func onOff(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

func loadEnvFile() {
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			slog.Warn("could not load env file", "path", envFile, "err", err)
		}
	}
}
