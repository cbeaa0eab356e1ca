package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danmuck/adbctl/internal/adb"
	adbsync "github.com/danmuck/adbctl/internal/protocol/sync"
)

type rootFlags struct {
	configPath string
	addr       string
	serial     string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "adbctl",
		Short:         "Talk to a local ADB server over its TCP wire protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config.toml")
	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "ADB server address (overrides config)")
	root.PersistentFlags().StringVarP(&flags.serial, "serial", "s", "", "device serial (overrides config)")

	root.AddCommand(
		newVersionCommand(flags),
		newDevicesCommand(flags),
		newKillCommand(flags),
		newListCommand(flags),
		newStatCommand(flags),
		newPushCommand(flags),
		newPullCommand(flags),
		newShellCommand(flags),
	)
	return root
}

// dialClient resolves config, applies flag overrides and opens the
// session used by one command invocation.
func dialClient(flags *rootFlags) (*adb.Client, string, error) {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, "", err
	}
	if flags.addr != "" {
		cfg.Addr = flags.addr
	}
	if flags.serial != "" {
		cfg.Serial = flags.serial
	}
	client, err := adb.Dial(cfg.Addr, cfg.Transport)
	if err != nil {
		return nil, "", err
	}
	return client, cfg.Serial, nil
}

func newVersionCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ADB server protocol version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := dialClient(flags)
			if err != nil {
				return err
			}
			defer client.Close()
			v, err := client.HostVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%04x\n", v)
			return nil
		},
	}
}

func newDevicesCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices tracked by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := dialClient(flags)
			if err != nil {
				return err
			}
			defer client.Close()
			devices, err := client.Devices()
			if err != nil {
				return err
			}
			for _, d := range devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.Serial, d.State)
			}
			return nil
		},
	}
}

func newKillCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "kill",
		Short: "Ask the ADB server to exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := dialClient(flags)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.Kill()
		},
	}
}

func newListCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <remote-dir>",
		Short: "List a directory on the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, serial, err := dialClient(flags)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.List(serial, args[0], func(e adbsync.DirectoryEntry) {
				fmt.Fprintf(cmd.OutOrStdout(), "%06o %10d %10d %s\n", e.Mode, e.Size, e.ModTime, e.Name)
			})
		},
	}
}

func newStatCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <remote-path>",
		Short: "Print mode, size and mtime of a remote path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, serial, err := dialClient(flags)
			if err != nil {
				return err
			}
			defer client.Close()
			st, err := client.Stat(serial, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mode=%06o size=%d mtime=%d\n", st.Mode, st.Size, st.ModTime)
			return nil
		},
	}
}

func newPushCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "push <local-file> <remote-path>",
		Short: "Upload a local file to the device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer src.Close()
			info, err := src.Stat()
			if err != nil {
				return err
			}

			client, serial, err := dialClient(flags)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.Push(serial, args[1], src, info.Mode(), info.ModTime())
		},
	}
}

func newPullCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <remote-path> <local-file>",
		Short: "Download a file from the device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst, err := os.Create(args[1])
			if err != nil {
				return err
			}

			client, serial, err := dialClient(flags)
			if err != nil {
				_ = dst.Close()
				return err
			}
			defer client.Close()
			if err := client.Pull(serial, args[0], dst); err != nil {
				_ = dst.Close()
				return err
			}
			return dst.Close()
		},
	}
}

func newShellCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shell <command> [args...]",
		Short: "Run a command on the device and stream its output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, serial, err := dialClient(flags)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.Shell(serial, cmd.OutOrStdout(), args...)
		},
	}
}
