package main

import (
	"os"

	"github.com/spf13/cobra"
)

func NewAddCmd(deps *Deps) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add LOCATION",
		Short: "register a repository from a git URL or a local directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := deps.Env.Add(cmd.Context(), args[0], name)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "repository name (default derived from the location)")
	return cmd
}

func NewRemoveCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:     "remove REPOSITORY",
		Short:   "unregister a repository",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.Env.Remove(cmd.Context(), args[0])
		},
	}
}

func NewUpdateCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "update REPOSITORY",
		Short: "synchronize a repository with its origin and rescan its problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.Env.Update(cmd.Context(), args[0])
		},
	}
}

func NewListCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "list registered repositories and their problems",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps.Env.List()
			return nil
		},
	}
}

func NewFetchCmd(deps *Deps) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "fetch PROBLEM",
		Short: "copy the public files of a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := dir
			if dst == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dst = wd
			}
			_, err := deps.Env.Fetch(args[0], dst)
			return err
		},
	}

	cmd.Flags().StringVarP(&dir, "output", "o", "", "destination directory (default current directory)")
	return cmd
}
