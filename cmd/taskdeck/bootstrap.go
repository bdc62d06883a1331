package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck/bootstrap"
)

func newBootstrapCmd() *cobra.Command {
	var outputDir string
	var overwrite bool
	var imageTag string
	var sets []string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Generate a container deployment bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			out := outputDir
			if out == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				out = filepath.Join(home, ".taskdeck", "deploy")
			}
			opts := bootstrap.Options{ImageTag: imageTag}
			for _, raw := range sets {
				override, err := bootstrap.ParseOverride(raw)
				if err != nil {
					return err
				}
				opts.Overrides = append(opts.Overrides, override)
			}
			paths, err := bootstrap.WriteBootstrap(out, overwrite, opts)
			if err != nil {
				return err
			}
			logger.Info("bootstrap wrote", "path", paths.ConfigPath, "name", "config-for-container.yaml")
			logger.Info("bootstrap wrote", "path", paths.ComposePath, "name", "docker-compose.yaml")
			logger.Info("bootstrap wrote", "path", paths.PodmanPath, "name", "podman.yaml")
			logger.Info("bootstrap wrote", "path", paths.Containerfile, "name", "Containerfile")
			logger.Info("bootstrap wrote", "path", paths.EnvPath, "name", ".env")
			_, err = fmt.Fprintln(cmd.OutOrStdout(), filepath.Dir(paths.ConfigPath))
			return err
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite existing files")
	cmd.Flags().StringVar(&imageTag, "tag", "", "server image tag (defaults to the build version)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "container config override as path=value (repeatable)")
	return cmd
}
