package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hookreel/internal/services"
	"hookreel/internal/stage"
)

var stageDescriptions = map[string]string{
	stage.Collect:        "Search topics and write the ranked posts",
	stage.Describe:       "Describe post media with the vision model",
	stage.GenerateHooks:  "Generate caption hooks for each post",
	stage.Select:         "Choose hooks through the review channel or auto-selection",
	stage.Download:       "Download post media into the cache",
	stage.ValidateAssets: "Check ffmpeg, fonts, directories, and overlay boxes",
	stage.Render:         "Render one video per selected hook",
}

func newStageCommands(ctx *commandContext) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(stage.Order))
	for _, name := range stage.Order {
		cmds = append(cmds, newStageCommand(ctx, name))
	}
	return cmds
}

func newStageCommand(ctx *commandContext, name string) *cobra.Command {
	var (
		dryRun bool
		auto   bool
	)

	use := name + " <input> [output]"
	args := cobra.RangeArgs(1, 2)
	if name == stage.Collect {
		use = name + " [output]"
		args = cobra.MaximumNArgs(1)
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: stageDescriptions[name],
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.baseLogger()
			if err != nil {
				return err
			}

			input, output := stageArgs(name, args)
			artifacts := stage.NewArtifacts(cfg, nil)
			if output != "" {
				artifacts = artifacts.WithOverride(output)
			}
			factory := &stageFactory{
				cfg:           cfg,
				logger:        logger,
				artifacts:     artifacts,
				out:           cmd.OutOrStdout(),
				skipSelection: auto,
				renderDryRun:  dryRun,
			}
			handler, err := factory.handler(name)
			if err != nil {
				return err
			}

			result, err := handler.Execute(services.WithStage(cmd.Context(), name), input)
			if err != nil {
				return err
			}
			if strings.TrimSpace(result) == "" {
				return errors.New("stage produced no artifact")
			}
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "Dry run complete; no videos written")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", result)
			return nil
		},
	}

	switch name {
	case stage.Render:
		cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print ffmpeg commands without running them")
	case stage.Select:
		cmd.Flags().BoolVar(&auto, "auto", false, "Auto-select hooks without asking reviewers")
	}
	return cmd
}

// stageArgs splits positional arguments into input and output paths.
func stageArgs(name string, args []string) (input, output string) {
	if name == stage.Collect {
		if len(args) > 0 {
			output = args[0]
		}
		return "", output
	}
	input = args[0]
	if len(args) > 1 {
		output = args[1]
	}
	return input, output
}
