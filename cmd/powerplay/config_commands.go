package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"powerplay/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"data_dir", cfg.Paths.DataDir},
				{"media_dir", cfg.Paths.MediaDir},
				{"log_dir", cfg.Paths.LogDir},
				{"assets_dir", cfg.Paths.AssetsDir},
				{"database", cfg.DatabasePath()},
				{"lease_ttl", fmt.Sprintf("%ds", cfg.Workflow.LeaseTTL)},
				{"heartbeat_interval", fmt.Sprintf("%ds", cfg.Workflow.HeartbeatInterval)},
				{"score_wait_timeout", fmt.Sprintf("%ds", cfg.Workflow.ScoreWaitTimeout)},
				{"retry_delays", intsToString(cfg.Workflow.RetryDelays)},
				{"image_model", cfg.Gemini.ImageModel},
				{"video_model", cfg.Gemini.VideoModel},
				{"blob_dir", cfg.Blob.Dir},
				{"public_base_url", cfg.Blob.PublicBaseURL},
				{"smtp", fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port)},
				{"smtp_configured", yesNo(cfg.SMTP.Username != "" && cfg.SMTP.Password != "")},
				{"ntfy_topic", cfg.Notifications.NtfyTopic},
				{"frames_dir", cfg.Overlay.FramesDir},
				{"video_frame", cfg.Overlay.VideoFrame},
				{"ffmpeg", cfg.FFmpegBinary()},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"SETTING", "VALUE"}, rows,
				[]columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := os.WriteFile(target, []byte(config.SampleConfig()), 0o644); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set gemini.api_key (or export GEMINI_API_KEY) before starting the daemon.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func intsToString(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprintf("%ds", v))
	}
	return strings.Join(parts, ", ")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
