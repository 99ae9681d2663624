package main

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/assisi-engine/arsenal/memutils"
	"github.com/assisi-engine/arsenal/spawn"
	"github.com/assisi-engine/arsenal/world"
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
)

var (
	soakOps          int
	soakSeed         int64
	soakDestroyRatio float64
	soakTickEvery    int
	soakDetailed     bool
)

func init() {
	cmd := newSoakCmd()
	cmd.Flags().IntVar(&soakOps, "ops", 100000, "Number of create and destroy operations")
	cmd.Flags().Int64Var(&soakSeed, "seed", 1, "Seed of the random workload")
	cmd.Flags().Float64Var(&soakDestroyRatio, "destroy-ratio", 0.4, "Share of operations that destroy an object")
	cmd.Flags().IntVar(&soakTickEvery, "tick-every", 100, "Tick the pool after this many operations, 0 to never tick")
	cmd.Flags().BoolVar(&soakDetailed, "detailed", false, "Include every live object in the JSON output")
	rootCmd.AddCommand(cmd)
}

func newSoakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "soak",
		Short: "Run a random create/destroy/tick workload",
		Long: `The soak command creates and destroys world objects at random, ticking the
pool at a fixed interval. Every object's mesh is stamped with a serial
number and checked against a model of the expected pool contents. The
pool's lists are validated at the end.

Example:
  spawnctl soak --ops 1000000 --seed 7
  spawnctl soak --initial-slots 4 --max-slots 64 --json --detailed
  SPAWNCTL_SYNCHRONIZED=true spawnctl soak`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSoak(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	return cmd
}

type soakResult struct {
	Ops          int
	Creates      int
	Destroys     int
	Ticks        int
	OutOfMemory  int
	StaleChecked int

	Alive    int
	Capacity int
	Pages    int
}

const soakDeltaSeconds = float32(1) / 60

func runSoak(out, logOut io.Writer) error {
	if soakDestroyRatio < 0 || soakDestroyRatio > 1 {
		return errors.Newf("--destroy-ratio must be between 0 and 1, got %g", soakDestroyRatio)
	}

	logger, err := newLogger(logOut)
	if err != nil {
		return err
	}

	pool, err := spawn.New[world.WorldObject](logger, spawn.CreateOptions[world.WorldObject]{
		Name:         world.PoolName,
		Flags:        createFlags(),
		InitialSlots: poolFlags.InitialSlots,
		MaxSlots:     poolFlags.MaxSlots,
		TickHandler:  world.Spinner{DegreesPerSecond: 45},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create the pool")
	}

	result, err := soak(pool, rand.New(rand.NewSource(soakSeed)))
	if err != nil {
		_ = pool.Close()
		return err
	}

	if jsonOut {
		w := jwriter.NewWriter()
		root := w.Object()
		writeSoakResult(root.Name("Soak"), result)
		root.Name("Pool").Raw([]byte(pool.BuildStatsString(soakDetailed)))
		root.End()

		_, err = fmt.Fprintln(out, string(w.Bytes()))
		if err != nil {
			_ = pool.Close()
			return err
		}
		return pool.Close()
	}

	printSoakResult(out, result)
	return pool.Close()
}

// soak runs the workload against pool and checks every surviving object against the
// model afterward
func soak(pool *spawn.Pool[world.WorldObject], rng *rand.Rand) (soakResult, error) {
	var result soakResult
	strict := pool.Flags()&spawn.PoolCreatePermissiveHandles == 0

	model := swiss.NewMap[spawn.Handle, world.MeshID](uint32(pool.CapacitySlots()))
	var handles []spawn.Handle
	var serial world.MeshID

	for op := 0; op < soakOps; op++ {
		result.Ops++

		if len(handles) > 0 && rng.Float64() < soakDestroyRatio {
			victim := rng.Intn(len(handles))
			handle := handles[victim]

			err := pool.Destroy(handle)
			if err != nil {
				return result, errors.Wrapf(err, "destroy %s", handle)
			}
			model.Delete(handle)
			handles[victim] = handles[len(handles)-1]
			handles = handles[:len(handles)-1]
			result.Destroys++

			if strict {
				_, err = pool.Get(handle)
				if !errors.Is(err, spawn.ErrStaleHandle) {
					return result, errors.Newf("destroyed handle %s was not rejected as stale: %v", handle, err)
				}
				result.StaleChecked++
			}
		} else {
			serial++
			position := mgl32.Vec3{float32(rng.Intn(100)), 0, float32(rng.Intn(100))}

			handle, err := world.SpawnMesh(pool, serial, position)
			if errors.Is(err, spawn.ErrOutOfMemory) {
				result.OutOfMemory++
				continue
			} else if err != nil {
				return result, errors.Wrap(err, "create")
			}

			if model.Has(handle) {
				return result, errors.Newf("handle %s was handed out twice", handle)
			}
			model.Put(handle, serial)
			handles = append(handles, handle)
			result.Creates++
		}

		if soakTickEvery > 0 && result.Ops%soakTickEvery == 0 {
			pool.Tick(soakDeltaSeconds)
			result.Ticks++
		}
	}

	var mismatch error
	model.Iter(func(handle spawn.Handle, mesh world.MeshID) bool {
		object, err := pool.Get(handle)
		if err != nil {
			mismatch = errors.Wrapf(err, "live handle %s", handle)
			return true
		}
		if object.Mesh() != mesh {
			mismatch = errors.Newf("handle %s holds mesh %d, expected %d", handle, object.Mesh(), mesh)
			return true
		}
		return false
	})
	if mismatch != nil {
		return result, mismatch
	}

	if pool.AliveCount() != model.Count() {
		return result, errors.Newf("pool reports %d live objects, expected %d", pool.AliveCount(), model.Count())
	}

	err := pool.Validate()
	if err != nil {
		return result, errors.Wrap(err, "pool failed validation")
	}

	result.Alive = pool.AliveCount()
	result.Capacity = pool.CapacitySlots()
	result.Pages = pool.PageCount()
	return result, nil
}

func printSoakResult(out io.Writer, result soakResult) {
	fmt.Fprintf(out, "Soak: %d operations, seed %d\n", result.Ops, soakSeed)
	fmt.Fprintf(out, "  Creates:       %d\n", result.Creates)
	fmt.Fprintf(out, "  Destroys:      %d\n", result.Destroys)
	fmt.Fprintf(out, "  Ticks:         %d\n", result.Ticks)
	if result.OutOfMemory > 0 {
		fmt.Fprintf(out, "  Out of memory: %d\n", result.OutOfMemory)
	}
	if result.StaleChecked > 0 {
		fmt.Fprintf(out, "  Stale checks:  %d\n", result.StaleChecked)
	}
	fmt.Fprintf(out, "Pool:\n")
	fmt.Fprintf(out, "  Alive:    %d\n", result.Alive)
	fmt.Fprintf(out, "  Capacity: %d slots in %d pages\n", result.Capacity, result.Pages)
	fmt.Fprintf(out, "  Valid:    yes\n")
	if memutils.DebugEnabled {
		fmt.Fprintf(out, "  Validated after every create and destroy\n")
	}
}

// writeSoakResult is the JSON form of printSoakResult
func writeSoakResult(w *jwriter.Writer, result soakResult) {
	obj := w.Object()
	defer obj.End()

	obj.Name("Ops").Int(result.Ops)
	obj.Name("Creates").Int(result.Creates)
	obj.Name("Destroys").Int(result.Destroys)
	obj.Name("Ticks").Int(result.Ticks)
	obj.Name("OutOfMemory").Int(result.OutOfMemory)
	obj.Name("StaleChecked").Int(result.StaleChecked)
	obj.Name("Alive").Int(result.Alive)
	obj.Name("Capacity").Int(result.Capacity)
	obj.Name("Pages").Int(result.Pages)
}
