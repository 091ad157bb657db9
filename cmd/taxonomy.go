package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"intakectl/internal/taxonomy"
)

var (
	taxonomyFixMissing bool
	taxonomyPrune      bool
)

func newTaxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy <module> <format>",
		Short: "Reconcile fields.yml with the fields a parser emits",
		Long: `Asks the engine which emitted fields are not declared in the format's
fields.yml and which declared fields are never emitted. The check fails when
either list is not empty, including on the run that edits fields.yml.`,
		Args: cobra.ExactArgs(2),
		RunE: runTaxonomy,
	}
	cmd.Flags().BoolVar(&taxonomyFixMissing, "fix-missing-fields", false, "Declare missing fields in fields.yml")
	cmd.Flags().BoolVar(&taxonomyPrune, "prune-taxonomy", false, "Remove unused fields from fields.yml")
	return cmd
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	module, format := args[0], args[1]

	report, err := rt.manager.GetTaxonomy(ctx, module, format)
	if err != nil {
		return err
	}

	reconciler := taxonomy.NewReconciler(cmd.OutOrStdout(), taxonomyFixMissing, taxonomyPrune)
	fieldsPath := rt.cfg.FieldsPath(module, format)
	return errors.Join(
		reconciler.CheckUnused(fieldsPath, report),
		reconciler.CheckMissing(fieldsPath, report),
	)
}
