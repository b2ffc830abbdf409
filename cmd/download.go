package cmd

import (
	"github.com/spf13/cobra"
)

func newDownloadURLCmd(a *app) *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "download-url <module>",
		Short: "Print the download URL of a module's release",
		Long: `Print the download URL of the release providing a module.

Without --version the latest release is used. --version accepts an exact
version or a range such as ">1.0,<2.0".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.runner(cmd)
			if err != nil {
				return err
			}
			return r.DownloadURL(cmd.Context(), args[0], version)
		},
	}
	cmd.Flags().StringVar(&version, "version", "",
		"version or version range to resolve")
	return cmd
}
