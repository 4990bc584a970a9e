package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Prints the seed routes a scan would start from",
		Long: `Resolves the manual URL list and the sitemap into seed routes, applies
template sampling and prints the resulting worklist as JSON. No pages are
fetched beyond robots.txt and the sitemaps.`,
		RunE: runRoutesCommand,
	}
	cmd.Flags().StringSlice("url", nil, "explicit url to scan instead of the site root (repeatable)")
	cmd.Flags().Int("sampling", 0, "routes kept per template; 0 disables sampling")
	cmd.Flags().Bool("no-sitemap", false, "do not read the sitemap")
	cmd.Flags().String("group-routes-by", "", "route attribute used for sampling groups")
	return cmd
}

func runRoutesCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger.With(zap.String("site", appInstance.Config.Site))

	kit, err := buildDiscovery(appInstance.Config, logger)
	if err != nil {
		return err
	}
	routes, err := kit.service.ResolveReportableRoutes(cmd.Context())
	if err != nil {
		return fmt.Errorf("resolve routes: %w", err)
	}
	logger.Info("Resolved seed routes", zap.Int("routes", len(routes)))
	return writeJSON(cmd.OutOrStdout(), routes)
}
