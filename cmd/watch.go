// Package cmd implements the command-line interface for lectio.
package cmd

import (
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/lectio-cli/lectio/watch"
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolP("continue", "c", false, "Resume the most recently watched course")
}

// watchCmd starts an interactive viewing session for a course or lecture.
var watchCmd = &cobra.Command{
	Use:   "watch [course ID or lecture address]",
	Short: "Watch a course's lectures and keep remote progress in sync",
	Long: "Watch a course's lectures and keep remote progress in sync.\n\n" +
		"The argument is either a course ID or a full lecture address\n" +
		"(/courses/{course}/lectures/{lecture}). A bare course ID opens the\n" +
		"first incomplete lecture.",
	Args: cobra.MaximumNArgs(1),
	Example: "  lectio watch crs-4821\n" +
		"  lectio watch /courses/crs-4821/lectures/lec-107-closures\n" +
		"  lectio watch --continue",
	Run: func(cmd *cobra.Command, args []string) {
		options := watch.Options{
			Continue: lo.Must(cmd.Flags().GetBool("continue")),
		}
		if len(args) > 0 {
			options.Target = args[0]
		}

		if options.Target == "" && !options.Continue {
			handleErr(cmd.Help())
			return
		}

		CheckDependencies()
		handleErr(watch.Run(&options))
	},
}
