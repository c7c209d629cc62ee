package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/wnxd/microtrace/syscalls"
)

type prototypeLister interface {
	Prototypes() []*syscalls.Prototype
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles [profile]",
		Short: "List decoder profiles, or the syscalls known to one profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, tag := range syscalls.Profiles() {
					fmt.Fprintln(out, tag)
				}
				return nil
			}
			tag, err := syscalls.ParseTag(args[0])
			if err != nil {
				return err
			}
			profile, err := syscalls.Select(tag.OS, tag.Arch)
			if err != nil {
				return err
			}
			var protos []*syscalls.Prototype
			if lister, ok := profile.(prototypeLister); ok {
				protos = lister.Prototypes()
			}
			data, err := yaml.Marshal(map[string]any{
				"profile":  tag.String(),
				"syscalls": protos,
			})
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}
