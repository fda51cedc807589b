package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sxyafiq/randflake"
)

type generateOptions struct {
	count           int
	machineID       int64
	epoch           int64
	format          string
	jsonOutput      bool
	batch           bool
	sequence        string
	clock           string
	checkpoint      string
	checkpointAhead time.Duration
}

func newGenerateCmd(a *app) *cobra.Command {
	o := &generateOptions{}

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen", "g"},
		Short:   "Generate IDs",
		Example: `  randflake generate --machine 42
  randflake generate --count 1000 --format base62 --machine 42 --batch
  randflake generate --json --machine 5 --checkpoint sqlite:/var/lib/randflake/marks.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGenerate(cmd, o)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&o.count, "count", "n", 1, "number of IDs to generate")
	f.Int64VarP(&o.machineID, "machine", "m", 0, "machine id (0-1023)")
	f.Int64Var(&o.epoch, "epoch", randflake.DefaultEpoch, "epoch in milliseconds since the Unix epoch")
	f.StringVarP(&o.format, "format", "f", "decimal", "output format: decimal, base58, base62, hex, binary")
	f.BoolVar(&o.jsonOutput, "json", false, "output JSON with decoded fields")
	f.BoolVar(&o.batch, "batch", false, "generate under a single lock acquisition")
	f.StringVar(&o.sequence, "sequence", "random", "sequence strategy: random or counter")
	f.StringVar(&o.clock, "clock", "wall", "time source: wall or monotonic")
	f.StringVar(&o.checkpoint, "checkpoint", "", "checkpoint store DSN: sqlite:<path>, redis:<addr> or pebble:<dir>")
	f.DurationVar(&o.checkpointAhead, "checkpoint-ahead", randflake.DefaultCheckpointAhead, "how far ahead each checkpoint reserves")
	return cmd
}

// applyFlags copies explicitly set flags over the file/env configuration.
func (a *app) applyFlags(cmd *cobra.Command, o *generateOptions) {
	f := cmd.Flags()
	if f.Changed("machine") {
		a.cfg.MachineID = o.machineID
	}
	if f.Changed("epoch") {
		a.cfg.Epoch = o.epoch
	}
	if f.Changed("sequence") {
		a.cfg.Sequence = o.sequence
	}
	if f.Changed("clock") {
		a.cfg.Clock = o.clock
	}
	if f.Changed("checkpoint") {
		a.cfg.Checkpoint.DSN = o.checkpoint
	}
	if f.Changed("checkpoint-ahead") {
		a.cfg.Checkpoint.Ahead = o.checkpointAhead
	}
}

func (a *app) runGenerate(cmd *cobra.Command, o *generateOptions) error {
	if o.count < 1 {
		return fmt.Errorf("--count must be at least 1, got %d", o.count)
	}
	a.applyFlags(cmd, o)

	ctx := cmd.Context()
	gen, closeStore, err := a.generator(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			a.log.Warnf("closing checkpoint store: %v", err)
		}
	}()

	start := time.Now()
	var ids []randflake.ID
	if o.batch {
		ids, err = gen.GenerateBatch(ctx, o.count)
		if err != nil {
			return fmt.Errorf("batch stopped after %d ids: %w", len(ids), err)
		}
	} else {
		ids = make([]randflake.ID, 0, o.count)
		for i := 0; i < o.count; i++ {
			id, err := gen.GenerateIDContext(ctx)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
	}
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	if o.jsonOutput {
		return writeGenerateJSON(out, gen, ids, elapsed)
	}
	for _, id := range ids {
		fmt.Fprintln(out, id.Format(o.format))
	}
	if o.count > 100 {
		m := gen.GetMetrics()
		a.log.Infof("generated %d IDs in %v (%.0f IDs/sec, %d exhausted milliseconds)",
			len(ids), elapsed, float64(len(ids))/elapsed.Seconds(), m.SequenceExhausted)
	}
	return nil
}

// idInfo is the JSON shape of one decoded ID.
type idInfo struct {
	ID        randflake.ID `json:"id"`
	Base58    string       `json:"base58"`
	Base62    string       `json:"base62"`
	Hex       string       `json:"hex"`
	Time      time.Time    `json:"time"`
	Timestamp int64        `json:"timestamp"`
	MachineID int64        `json:"machine_id"`
	Sequence  int64        `json:"sequence"`
}

func newIDInfo(id randflake.ID, epoch int64) idInfo {
	p := id.Decompose(epoch)
	return idInfo{
		ID:        id,
		Base58:    id.Base58(),
		Base62:    id.Base62(),
		Hex:       id.Hex(),
		Time:      p.Time(),
		Timestamp: p.Timestamp,
		MachineID: p.MachineID,
		Sequence:  p.Sequence,
	}
}

func writeGenerateJSON(w io.Writer, gen *randflake.Generator, ids []randflake.ID, elapsed time.Duration) error {
	type output struct {
		Count     int      `json:"count"`
		MachineID int64    `json:"machine_id"`
		Epoch     int64    `json:"epoch"`
		Duration  string   `json:"duration"`
		IDs       []idInfo `json:"ids"`
	}

	infos := make([]idInfo, len(ids))
	for i, id := range ids {
		infos[i] = newIDInfo(id, gen.Epoch())
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output{
		Count:     len(ids),
		MachineID: gen.MachineID(),
		Epoch:     gen.Epoch(),
		Duration:  elapsed.String(),
		IDs:       infos,
	})
}
