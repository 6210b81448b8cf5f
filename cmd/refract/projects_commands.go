package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/refract/refract-studio/internal/export"
	"github.com/refract/refract-studio/internal/project"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "Inspect stored projects",
	}

	projectsCmd.AddCommand(newProjectsListCommand(ctx))
	projectsCmd.AddCommand(newProjectsExportCommand(ctx))

	return projectsCmd
}

func newProjectsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := ctx.openProjects()
			if err != nil {
				return err
			}
			defer closeDB()

			projects, err := svc.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list projects: %w", err)
			}
			writeProjectTable(cmd.OutOrStdout(), projects, time.Now())
			return nil
		},
	}
}

func writeProjectTable(out io.Writer, projects []*project.Project, now time.Time) {
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects yet.")
		return
	}

	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		saved := "never"
		if p.TimelineSavedAt != nil {
			saved = humanize.RelTime(*p.TimelineSavedAt, now, "ago", "from now")
		}
		rows = append(rows, []string{
			p.ID,
			p.Name,
			strconv.Itoa(len(p.Shots)),
			strconv.Itoa(len(p.Timeline)),
			saved,
			humanize.RelTime(p.UpdatedAt, now, "ago", "from now"),
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Name", "Shots", "Clips", "Timeline saved", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))
}

func newProjectsExportCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var frameRate float64
	var name string

	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Write a project's saved timeline as a CMX3600 EDL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := ctx.openProjects()
			if err != nil {
				return err
			}
			defer closeDB()

			p, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load project: %w", err)
			}
			if p == nil {
				return project.ErrNotFound
			}
			if len(p.Timeline) == 0 {
				return fmt.Errorf("project %q has no saved timeline", p.Name)
			}

			events, unresolved := export.EventsFromClips(p.Timeline)
			if len(events) == 0 {
				return fmt.Errorf("none of the %d clips has source media", len(p.Timeline))
			}
			if name == "" {
				name = p.Name
			}

			path, err := export.WriteEDL(outputDir, name, events, frameRate)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %d events to %s\n", len(events), path)
			if len(unresolved) > 0 {
				fmt.Fprintf(out, "Skipped %d clips without source media\n", len(unresolved))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "out", "o", ".", "Existing directory to write the EDL into")
	cmd.Flags().Float64Var(&frameRate, "fps", export.DefaultFrameRate, "Timecode frame rate (29.97 and 59.94 use drop frame)")
	cmd.Flags().StringVar(&name, "name", "", "File and title name (defaults to the project name)")
	return cmd
}
