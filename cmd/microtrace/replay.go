package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"

	"github.com/wnxd/microtrace/metrics"
	"github.com/wnxd/microtrace/replay"
	"github.com/wnxd/microtrace/syscalls"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace.yaml>",
		Short: "Replay a recorded execution trace and print the correlated records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trace, err := replay.LoadFile(args[0])
			if err != nil {
				return err
			}
			if mode := viper.GetString("key-mode"); mode != "" {
				trace.KeyMode = mode
			}
			output := viper.GetString("output")
			if output != "text" && output != "yaml" {
				return errors.Errorf("unsupported output %q", output)
			}

			registry := prometheus.NewRegistry()
			opts := replay.Options{Logger: logrus.StandardLogger()}
			opts.Observe = func(tr syscalls.Tracer) {
				c := metrics.NewCollector(tr)
				registry.MustRegister(c)
				tr.Subscribe(c)
			}
			addr := viper.GetString("metrics-addr")
			if addr != "" {
				server := &http.Server{Addr: addr, Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}
				go func() {
					if err := server.ListenAndServe(); err != http.ErrServerClosed {
						logrus.Errorf("couldn't serve metrics: %s", err)
					}
				}()
				defer server.Close()
			}

			records, err := replay.Run(trace, opts)
			if werr := writeRecords(cmd.OutOrStdout(), output, records); werr != nil {
				return werr
			}
			if err != nil {
				return err
			}
			if addr != "" {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				logrus.Infof("replay finished, serving metrics on %s until interrupted", addr)
				<-ctx.Done()
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.String("key-mode", "", "Override the trace key mode (asid, thread)")
	flags.StringP("output", "o", "text", "Output format (text, yaml)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address after the replay")
	viper.BindPFlag("key-mode", flags.Lookup("key-mode"))
	viper.BindPFlag("output", flags.Lookup("output"))
	viper.BindPFlag("metrics-addr", flags.Lookup("metrics-addr"))
	return cmd
}

type recordView struct {
	Kind       string                  `json:"kind"`
	Name       string                  `json:"name,omitempty"`
	ASID       uint64                  `json:"asid"`
	TID        uint64                  `json:"tid,omitempty"`
	PC         uint64                  `json:"pc"`
	ReturnPC   uint64                  `json:"returnPC,omitempty"`
	CallNumber uint64                  `json:"callNumber,omitempty"`
	Args       []uint64                `json:"args,omitempty"`
	Return     *syscalls.DecodedReturn `json:"return,omitempty"`
	Reason     string                  `json:"reason,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

func viewOf(r syscalls.Record) recordView {
	v := recordView{Kind: r.Kind().String()}
	switch r := r.(type) {
	case *syscalls.SyscallEnter:
		v.Name, v.ASID, v.TID, v.PC, v.ReturnPC, v.CallNumber = r.Name(), r.ASID, r.TID, r.CallSite, r.ReturnPC, r.CallNumber
		v.Args = args(r.Prototype, r.Args)
	case *syscalls.SyscallReturn:
		v.Name, v.ASID, v.TID, v.PC, v.ReturnPC, v.CallNumber = r.Name(), r.ASID, r.TID, r.CallSite, r.ReturnPC, r.CallNumber
		v.Args = args(r.Prototype, r.Args)
		v.Return = &r.Return
	case *syscalls.UnmatchedEntry:
		v.ASID, v.TID, v.PC, v.ReturnPC, v.CallNumber = r.ASID, r.TID, r.CallSite, r.ReturnPC, r.CallNumber
		v.Reason = r.Reason.String()
	case *syscalls.UnmatchedReturn:
		v.ASID, v.TID, v.PC = r.ASID, r.TID, r.PC
	case *syscalls.DecodeFailure:
		v.ASID, v.TID, v.PC, v.CallNumber = r.ASID, r.TID, r.PC, r.CallNumber
		v.Error = r.Err.Error()
	}
	return v
}

func args(proto *syscalls.Prototype, raw syscalls.RawArgs) []uint64 {
	if proto == nil {
		return nil
	}
	return raw[:min(len(proto.Args), syscalls.MaxArgs)]
}

func writeRecords(w io.Writer, output string, records []syscalls.Record) error {
	if output == "text" {
		for _, r := range records {
			if _, err := fmt.Fprintln(w, r); err != nil {
				return err
			}
		}
		return nil
	}
	views := make([]recordView, len(records))
	for i, r := range records {
		views[i] = viewOf(r)
	}
	data, err := yaml.Marshal(map[string]any{"records": views})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
