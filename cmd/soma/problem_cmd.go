package main

import (
	"github.com/spf13/cobra"
)

func NewBuildCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "build PROBLEM",
		Short: "build the image of a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := deps.Env.Build(cmd.Context(), args[0])
			return err
		},
	}
}

func NewRunCmd(deps *Deps) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run PROBLEM",
		Short: "start a container of a built problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = deps.Env.Config().DefaultPort
			}
			_, err := deps.Env.Run(cmd.Context(), args[0], port)
			return err
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "host port to publish the problem on (default from config, 31337)")
	return cmd
}

func NewStopCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "stop PROBLEM",
		Short: "stop and remove the containers of a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.Env.Stop(cmd.Context(), args[0])
		},
	}
}

func NewCleanCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "clean PROBLEM",
		Short: "remove the image of a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.Env.Clean(cmd.Context(), args[0])
		},
	}
}
