package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// githubRepoSlug is the release repository used when --repository is not
// given. Builds published elsewhere set it with
// -ldflags "-X intakectl/cmd.githubRepoSlug=owner/name".
var githubRepoSlug = "SEKOIA-IO/intakectl"

var selfUpdateRepository string

func newSelfUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Update intakectl to the latest version",
		Long: `Checks for the latest release of intakectl on GitHub and
updates the current binary if a newer version is found.`,
		RunE: runSelfUpdate,
	}
	cmd.Flags().StringVar(&selfUpdateRepository, "repository", "", "GitHub repository (owner/name) publishing the releases")
	return cmd
}

func releaseRepository() (string, error) {
	slug := selfUpdateRepository
	if slug == "" {
		slug = githubRepoSlug
	}
	owner, name, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("invalid repository %q, expected owner/name", slug)
	}
	return slug, nil
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	currentVersion := rootCmd.Version
	if currentVersion == "" || currentVersion == "dev" {
		return fmt.Errorf("cannot self-update a development version")
	}

	slug, err := releaseRepository()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if cmd != nil {
		ctx = cmd.Context()
	}

	fmt.Printf("Current version: %s\n", currentVersion)
	fmt.Println("Checking for updates...")

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(slug))
	if err != nil {
		return fmt.Errorf("error detecting latest version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest release for %s could not be found", slug)
	}

	if latest.LessOrEqual(currentVersion) {
		fmt.Printf("Current version (%s) is the latest.\n", currentVersion)
		return nil
	}

	fmt.Printf("Found newer version: %s (published at %s)\n", latest.Version(), latest.PublishedAt)

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	fmt.Printf("Updating %s...\n", exe)
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}

	fmt.Printf("Successfully updated to version %s\n", latest.Version())
	return nil
}
