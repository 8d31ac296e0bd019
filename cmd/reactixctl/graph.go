package main

import (
	"fmt"
	"sort"

	"github.com/cuemby/reactix/pkg/config"
	"github.com/cuemby/reactix/pkg/keys"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the computed level map and reaction tables for a manifest without running it",
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().StringP("file", "f", "", "Topology manifest YAML file (required)")
	_ = graphCmd.MarkFlagRequired("file")
}

func runGraph(cmd *cobra.Command, _ []string) error {
	filename, _ := cmd.Flags().GetString("file")

	m, err := config.LoadManifest(filename)
	if err != nil {
		return err
	}

	b, err := config.Build(m)
	if err != nil {
		return fmt.Errorf("build topology: %w", err)
	}

	topo, err := b.Finish()
	if err != nil {
		return fmt.Errorf("finish topology: %w", err)
	}

	enclaveKeys := make([]keys.EnclaveKey, 0, len(topo.Envs))
	for ek := range topo.Envs {
		enclaveKeys = append(enclaveKeys, ek)
	}
	sort.Slice(enclaveKeys, func(i, j int) bool { return enclaveKeys[i] < enclaveKeys[j] })

	for _, ek := range enclaveKeys {
		env := topo.Envs[ek]
		fmt.Printf("enclave %d\n", ek)

		reactionKeys := env.Reactions.Keys()
		sort.Slice(reactionKeys, func(i, j int) bool {
			a, b := env.Reactions.MustGet(reactionKeys[i]), env.Reactions.MustGet(reactionKeys[j])
			if a.Level != b.Level {
				return a.Level < b.Level
			}
			return a.Priority < b.Priority
		})

		fmt.Printf("  %-4s %-24s %-20s %-5s %-5s %-6s\n", "LVL", "REACTION", "REACTOR", "TRIG", "USE", "EFFECT")
		for _, rk := range reactionKeys {
			rr := env.Reactions.MustGet(rk)
			reactorName := env.Reactors.MustGet(rr.Reactor).Name
			fmt.Printf("  %-4d %-24s %-20s %-5d %-5d %-6d\n",
				rr.Level, rr.Name, reactorName,
				len(rr.TriggerPorts)+len(rr.TriggerActions), len(rr.UsePorts), len(rr.EffectPorts))
		}
	}

	if len(topo.Links) > 0 {
		fmt.Println("cross-enclave links:")
		for _, link := range topo.Links {
			fmt.Printf("  enclave %d -> enclave %d (delay %s)\n", link.HomeEnclave, link.DownEnclave, link.Delay)
		}
	}

	return nil
}
