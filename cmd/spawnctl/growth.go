package main

import (
	"fmt"
	"io"

	"github.com/assisi-engine/arsenal/spawn"
	"github.com/assisi-engine/arsenal/world"
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
)

var growthObjects int

func init() {
	cmd := newGrowthCmd()
	cmd.Flags().IntVar(&growthObjects, "objects", 10000, "Number of objects to create")
	rootCmd.AddCommand(cmd)
}

func newGrowthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "growth",
		Short: "Show how a pool grows as objects are created",
		Long: `The growth command creates objects without destroying any and prints
every page the pool allocates along the way.

Example:
  spawnctl growth --initial-slots 16 --objects 5000
  spawnctl growth --max-slots 100 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrowth(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	return cmd
}

type pageGrowth struct {
	Page     int
	Slots    int
	Bytes    int
	Capacity int
	// Objects is the object count that triggered the page
	Objects int
}

type growthRecorder struct {
	pages    []pageGrowth
	capacity int
	created  int
}

func (r *growthRecorder) pageAllocated(poolName string, pageIndex int, slotCount int, byteSize int, userData interface{}) {
	r.capacity += slotCount
	r.pages = append(r.pages, pageGrowth{
		Page:     pageIndex,
		Slots:    slotCount,
		Bytes:    byteSize,
		Capacity: r.capacity,
		Objects:  r.created,
	})
}

func runGrowth(out, logOut io.Writer) error {
	logger, err := newLogger(logOut)
	if err != nil {
		return err
	}

	recorder := &growthRecorder{}
	pool, err := spawn.New[world.WorldObject](logger, spawn.CreateOptions[world.WorldObject]{
		Name:         world.PoolName,
		Flags:        createFlags(),
		InitialSlots: poolFlags.InitialSlots,
		MaxSlots:     poolFlags.MaxSlots,
		PageCallbacks: &spawn.PageCallbackOptions{
			Allocate: recorder.pageAllocated,
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create the pool")
	}

	exhausted := false
	for recorder.created < growthObjects {
		_, err = pool.Create()
		if errors.Is(err, spawn.ErrOutOfMemory) {
			exhausted = true
			break
		} else if err != nil {
			_ = pool.Close()
			return err
		}
		recorder.created++
	}

	if jsonOut {
		err = writeGrowth(out, recorder, exhausted)
		if err != nil {
			_ = pool.Close()
			return err
		}
		return pool.Close()
	}

	fmt.Fprintf(out, "%-6s %12s %12s %12s %12s\n", "Page", "Slots", "Bytes", "Capacity", "Objects")
	for _, pg := range recorder.pages {
		fmt.Fprintf(out, "%-6d %12d %12d %12d %12d\n", pg.Page, pg.Slots, pg.Bytes, pg.Capacity, pg.Objects)
	}
	fmt.Fprintf(out, "\n%d objects in %d slots\n", recorder.created, pool.CapacitySlots())
	if exhausted {
		fmt.Fprintf(out, "Slot limit of %d reached\n", poolFlags.MaxSlots)
	}

	return pool.Close()
}

func writeGrowth(out io.Writer, recorder *growthRecorder, exhausted bool) error {
	w := jwriter.NewWriter()
	root := w.Object()

	root.Name("Objects").Int(recorder.created)
	root.Name("Capacity").Int(recorder.capacity)
	root.Name("Exhausted").Bool(exhausted)

	pages := root.Name("Pages").Array()
	for _, pg := range recorder.pages {
		obj := pages.Object()
		obj.Name("Page").Int(pg.Page)
		obj.Name("Slots").Int(pg.Slots)
		obj.Name("Bytes").Int(pg.Bytes)
		obj.Name("Capacity").Int(pg.Capacity)
		obj.Name("Objects").Int(pg.Objects)
		obj.End()
	}
	pages.End()

	root.End()
	_, err := fmt.Fprintln(out, string(w.Bytes()))
	return err
}
