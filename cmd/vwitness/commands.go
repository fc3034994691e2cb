package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"runtime"

	"fortio.org/safecast"
	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	valuewitness "github.com/wippyai/value-witness"
	"github.com/wippyai/value-witness/layout"
	"github.com/wippyai/value-witness/memory"
	"github.com/wippyai/value-witness/witness"
)

var sizeCmd = &cobra.Command{
	Use:   "size <layout>...",
	Short: "Print the size and alignment of layouts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := analyzeAll(cmd, args)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if format != "" && format != "text" {
			return writeReports(cmd.OutOrStdout(), format, false, reports)
		}
		for _, r := range reports {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tsize %d\talign %d\n", r.Layout, r.Size, r.Alignment)
		}
		return nil
	},
}

var spareBitsCmd = &cobra.Command{
	Use:   "sparebits <layout>",
	Short: "Print the spare-bit mask of a layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		md, err := metadataFlag(cmd)
		if err != nil {
			return err
		}
		prog, err := readLayout(args[0])
		if err != nil {
			return err
		}
		mask, err := witness.ComputeSpareBits(prog, md)
		if err != nil {
			return err
		}
		color, err := useColor(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), mask.String())
		fmt.Fprintln(cmd.OutOrStdout(), renderMask(mask, color))
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <layout>...",
	Short: "Print size, spare bits and enum packing of layouts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := analyzeAll(cmd, args)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		color, err := useColor(cmd)
		if err != nil {
			return err
		}
		return writeReports(cmd.OutOrStdout(), format, color, reports)
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag <layout> <hex-data>",
	Short: "Decode the discriminant of a multi-payload enum instance",
	Long: `tag decodes which case a multi-payload enum instance holds.
With --set it stores the given case instead and prints the new bytes.
--set accepts only tags that decoding can return: without an explicit tag
field these are the values the tag-carrying spare bits can hold.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		md, err := metadataFlag(cmd)
		if err != nil {
			return err
		}
		e, err := multiPayloadArg(args[0], md)
		if err != nil {
			return err
		}
		data, err := parseHex(args[1])
		if err != nil {
			return err
		}
		if uint32(len(data)) < e.Size {
			padded := make([]byte, e.Size)
			copy(padded, data)
			data = padded
		}

		out := cmd.OutOrStdout()
		if cmd.Flags().Changed("set") {
			tag, _ := cmd.Flags().GetUint32("set")
			if err := witness.InjectPayloadTag(e, tag, data); err != nil {
				return err
			}
			fmt.Fprintln(out, hex.EncodeToString(data[:e.Size]))
			return nil
		}

		tag, err := witness.ExtractPayloadTag(e, data)
		if err != nil {
			return err
		}
		if tag < e.NumPayloads() {
			fmt.Fprintf(out, "tag %d: payload %d\n", tag, tag)
		} else {
			fmt.Fprintf(out, "tag %d: empty case %d\n", tag, tag-e.NumPayloads())
		}
		return nil
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy <layout> <hex-data>",
	Short: "Destroy a value held in the given bytes and list the releases",
	Long: `destroy copies the bytes into an aligned allocation of a scratch
memory, walks the value at --addr within them and prints every release
operation it would perform.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		md, err := metadataFlag(cmd)
		if err != nil {
			return err
		}
		prog, err := readLayout(args[0])
		if err != nil {
			return err
		}
		data, err := parseHex(args[1])
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetUint32("addr")
		align, err := witness.ComputeAlignment(prog, md)
		if err != nil {
			return err
		}

		size, err := safecast.Conv[uint32](len(data))
		if err != nil {
			return fmt.Errorf("data too large: %w", err)
		}
		mem := memory.NewBytes(size)
		base, err := stage(mem, mem, data, align)
		if err != nil {
			return err
		}
		defer mem.Free(base, size, align)

		trace := &traceRuntime{}
		if err := witness.NewDestroyer(mem, trace).Destroy(base+addr, prog, md); err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		return writeReleases(cmd, format, trace.releases)
	},
}

func init() {
	tagCmd.Flags().Uint32("set", 0, "store this case instead of decoding")
	destroyCmd.Flags().Uint32("addr", 0, "address of the value within the data")
}

// analyzeAll analyzes every layout argument in parallel, keeping argument order.
func analyzeAll(cmd *cobra.Command, args []string) ([]*report, error) {
	md, err := metadataFlag(cmd)
	if err != nil {
		return nil, err
	}

	reports := make([]*report, len(args))
	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(min(runtime.GOMAXPROCS(0), len(args)))
	for i, arg := range args {
		i, arg := i, arg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			prog, err := readLayout(arg)
			if err != nil {
				return err
			}
			r, err := analyze(prog, md)
			if err != nil {
				return fmt.Errorf("%s: %w", arg, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// stage copies data into a fresh allocation aligned for the value it holds.
func stage(a valuewitness.Allocator, m valuewitness.Memory, data []byte, align uint32) (uint32, error) {
	ptr, err := a.Alloc(uint32(len(data)), align)
	if err != nil {
		return 0, err
	}
	if err := m.Write(ptr, data); err != nil {
		a.Free(ptr, uint32(len(data)), align)
		return 0, err
	}
	return ptr, nil
}

func multiPayloadArg(arg string, md witness.Metadata) (*witness.MultiPayloadEnum, error) {
	prog, err := readLayout(arg)
	if err != nil {
		return nil, err
	}
	n, next, err := layout.Decode(prog, 0)
	if err != nil {
		return nil, err
	}
	mpe, ok := n.(layout.MultiPayloadEnum)
	if !ok || next != len(prog) {
		return nil, fmt.Errorf("layout %q is not a single multi-payload enum", arg)
	}
	return witness.ReadMultiPayloadEnum(mpe, md)
}

type release struct {
	Kind string `json:"kind" msgpack:"kind"`
	Word uint64 `json:"word" msgpack:"word"`
}

// traceRuntime records releases instead of performing them.
type traceRuntime struct {
	releases []release
}

func (t *traceRuntime) add(kind layout.RefKind, word uint64) {
	t.releases = append(t.releases, release{Kind: kind.String(), Word: word})
}

func (t *traceRuntime) Release(obj uint64)               { t.add(layout.RefNativeStrong, obj) }
func (t *traceRuntime) UnownedRelease(obj uint64)        { t.add(layout.RefNativeUnowned, obj) }
func (t *traceRuntime) WeakDestroy(ref uint64)           { t.add(layout.RefNativeWeak, ref) }
func (t *traceRuntime) UnknownUnownedDestroy(ref uint64) { t.add(layout.RefUnknownUnowned, ref) }
func (t *traceRuntime) UnknownWeakDestroy(ref uint64)    { t.add(layout.RefUnknownWeak, ref) }
func (t *traceRuntime) BlockRelease(block uint64)        { t.add(layout.RefBlock, block) }
func (t *traceRuntime) BridgeRelease(obj uint64)         { t.add(layout.RefBridge, obj) }
func (t *traceRuntime) ForeignRelease(obj uint64)        { t.add(layout.RefForeignObject, obj) }
func (t *traceRuntime) ErrorRelease(err uint64)          { t.add(layout.RefError, err) }

func writeReleases(cmd *cobra.Command, format string, releases []release) error {
	out := cmd.OutOrStdout()
	switch format {
	case "", "text":
		if len(releases) == 0 {
			fmt.Fprintln(out, "no releases")
		}
		for _, r := range releases {
			fmt.Fprintf(out, "%-16s 0x%016x\n", r.Kind, r.Word)
		}
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(releases)
	case "msgpack":
		return msgpack.NewEncoder(out).Encode(releases)
	}
	return fmt.Errorf("invalid --format value %q (expected text|json|msgpack)", format)
}
