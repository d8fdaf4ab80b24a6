package main

// bio-graphquant computes, for every read aligned to a variation graph, the
// probability that it was sequenced from each of the reference paths
// (haplotypes or transcripts) embedded in the graph.
//
// Example: paired-end reads aligned with "vg mpmap" and converted with
// "vg view -K -j":
//
//    bio-graphquant -nodes nodes.tsv -paths paths.tsv.gz -alignments reads.json.gz \
//      -multipath -paired -frag-mean 280 -frag-sd 60 -output probs.tsv

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/graphquant/fraglen"
	"github.com/grailbio/graphquant/pathfind"
	"github.com/grailbio/graphquant/pathsindex"
	"github.com/grailbio/graphquant/quant"
	"github.com/grailbio/graphquant/vgpb"
)

// Collection of options set via cmdline flags
type graphquantFlags struct {
	nodesPath      string
	pathsPath      string
	alignmentsPath string
	outputPath     string
	configPath     string
	multipath      bool
	paired         bool
	fragMean       float64
	fragSD         float64
}

func usage() {
	fmt.Fprintln(os.Stderr, `
bio-graphquant reads graph alignments in vg JSON format (one object per read,
mates interleaved with -paired) and writes one TSV line per distinct read
probability profile of each path cluster.

The graph is given as two TSV files: -nodes lists "node_id<TAB>length", and
-paths lists "name<TAB>steps" with steps like "1+,2+,5-". Options may also be
read from a YAML file with -config; flags given explicitly override it.

Flags:`)
	flag.PrintDefaults()
}

// readAlignments reads the alignments in path. With paired set, consecutive
// records are the two mates of a pair.
func readAlignments(ctx context.Context, path string, multipath, paired bool) (reads []quant.Read, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	sc := vgpb.NewScanner(r, multipath)
	var mate1 vgpb.Record
	for sc.Scan() {
		rec := sc.Record()
		if !paired {
			reads = append(reads, quant.Read{Name: rec.ReadName(), Mate1: rec})
			continue
		}
		if mate1 == nil {
			mate1 = rec
			continue
		}
		if mate1.ReadName() != rec.ReadName() {
			log.Debug.Printf("%s: mates named %s and %s", path, mate1.ReadName(), rec.ReadName())
		}
		reads = append(reads, quant.Read{Name: mate1.ReadName(), Mate1: mate1, Mate2: rec})
		mate1 = nil
	}
	if err := sc.Err(); err != nil {
		return nil, errors.E(err, path)
	}
	if mate1 != nil {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: odd number of records with -paired, last is %s", path, mate1.ReadName()))
	}
	return reads, nil
}

// writeProfiles writes the result to path, or to stdout if path is empty.
func writeProfiles(ctx context.Context, path string, res *quant.Result, index pathsindex.Index) error {
	if path == "" {
		return quant.WriteProfiles(os.Stdout, res, index)
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	er := errors.Once{}
	er.Set(quant.WriteProfiles(out.Writer(ctx), res, index))
	er.Set(out.Close(ctx))
	return er.Err()
}

// uint32Value is a flag.Value for uint32 options.
type uint32Value struct{ p *uint32 }

func (v uint32Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatUint(uint64(*v.p), 10)
}

func (v uint32Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*v.p = uint32(n)
	return nil
}

// registerOptsFlags registers the flags of quant.Opts with defaults taken from
// opts. It returns, for each flag name, a function that copies the flag value
// into a quant.Opts. Only the flags given on the command line are applied, so
// that they take precedence over a -config file.
func registerOptsFlags(fs *flag.FlagSet, opts quant.Opts) map[string]func(*quant.Opts) {
	var (
		f           = opts
		libraryType = string(opts.Finder.LibraryType)
	)
	f.Finder.MaxPairFragLength = 0
	fs.StringVar(&libraryType, "library-type", libraryType, "Library strandedness: fr, rf or unstranded.")
	fs.Var(uint32Value{&f.Finder.MaxPairFragLength}, "max-pair-frag-length",
		"Longest fragment of a read pair. If unset, the fragment length mean plus 10 standard deviations.")
	fs.Var(uint32Value{&f.Finder.MinMapqFilter}, "min-mapq", "Drop alignments with a lower mapping quality.")
	fs.Float64Var(&f.Finder.MinBestScoreFilter, "min-best-score", f.Finder.MinBestScoreFilter,
		"Drop alignments whose score is below this fraction of the optimal score.")
	fs.Float64Var(&f.Finder.MaxSoftclipFilter, "max-softclip", f.Finder.MaxSoftclipFilter,
		"Drop alignments with a larger fraction of soft-clipped bases.")
	fs.Var(uint32Value{&f.Finder.MaxStartNodeOffset}, "max-start-node-offset",
		"Do not seed a search from an alignment that starts deeper into its first node. 0 disables the check.")
	fs.Float64Var(&f.ScoreLogBase, "score-log-base", f.ScoreLogBase, "Factor converting alignment scores to log likelihoods.")
	fs.Float64Var(&f.Precision, "precision", f.Precision, "Tolerance used to tell probability profiles apart.")
	fs.BoolVar(&f.PositionalProbs, "positional", f.PositionalProbs, "Correct probabilities for path length.")
	fs.IntVar(&f.Parallelism, "parallelism", f.Parallelism, "Number of workers. 0 uses all CPUs.")

	return map[string]func(*quant.Opts){
		"library-type":          func(o *quant.Opts) { o.Finder.LibraryType = pathfind.LibraryType(libraryType) },
		"max-pair-frag-length":  func(o *quant.Opts) { o.Finder.MaxPairFragLength = f.Finder.MaxPairFragLength },
		"min-mapq":              func(o *quant.Opts) { o.Finder.MinMapqFilter = f.Finder.MinMapqFilter },
		"min-best-score":        func(o *quant.Opts) { o.Finder.MinBestScoreFilter = f.Finder.MinBestScoreFilter },
		"max-softclip":          func(o *quant.Opts) { o.Finder.MaxSoftclipFilter = f.Finder.MaxSoftclipFilter },
		"max-start-node-offset": func(o *quant.Opts) { o.Finder.MaxStartNodeOffset = f.Finder.MaxStartNodeOffset },
		"score-log-base":        func(o *quant.Opts) { o.ScoreLogBase = f.ScoreLogBase },
		"precision":             func(o *quant.Opts) { o.Precision = f.Precision },
		"positional":            func(o *quant.Opts) { o.PositionalProbs = f.PositionalProbs },
		"parallelism":           func(o *quant.Opts) { o.Parallelism = f.Parallelism },
	}
}

// resolveOpts starts from the -config file, or the defaults, and applies the
// flags that were set explicitly.
func resolveOpts(ctx context.Context, fs *flag.FlagSet, configPath string, overrides map[string]func(*quant.Opts)) (quant.Opts, error) {
	opts := quant.DefaultOpts
	opts.Finder.MaxPairFragLength = 0
	if configPath != "" {
		var err error
		if opts, err = quant.LoadOpts(ctx, configPath, opts); err != nil {
			return opts, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply(&opts)
		}
	})
	return opts, nil
}

func run(ctx context.Context, flags graphquantFlags, opts quant.Opts) error {
	if flags.nodesPath == "" || flags.pathsPath == "" || flags.alignmentsPath == "" {
		return errors.E(errors.Invalid, "-nodes, -paths and -alignments are required")
	}
	var fragDist *fraglen.Dist
	if flags.paired {
		var err error
		if fragDist, err = fraglen.New(flags.fragMean, flags.fragSD); err != nil {
			return err
		}
		if opts.Finder.MaxPairFragLength == 0 {
			opts.Finder.MaxPairFragLength = fragDist.MaxLength()
		}
		log.Printf("Fragment length distribution %v, max fragment length %d", fragDist, opts.Finder.MaxPairFragLength)
	} else if opts.Finder.MaxPairFragLength == 0 {
		opts.Finder.MaxPairFragLength = pathfind.DefaultOpts.MaxPairFragLength
	}

	index, err := pathsindex.LoadTSV(ctx, flags.nodesPath, flags.pathsPath)
	if err != nil {
		return err
	}
	reads, err := readAlignments(ctx, flags.alignmentsPath, flags.multipath, flags.paired)
	if err != nil {
		return err
	}
	log.Printf("Read %d reads from %s", len(reads), flags.alignmentsPath)

	var dist fraglen.LogProber
	if fragDist != nil {
		dist = fragDist
	}
	res, err := quant.Run(ctx, index, dist, reads, opts)
	if err != nil {
		return err
	}
	if err := writeProfiles(ctx, flags.outputPath, res, index); err != nil {
		return err
	}
	log.Printf("Stats: %v", res.Stats)
	return nil
}

func main() {
	flag.Usage = usage
	flags := graphquantFlags{}
	flag.StringVar(&flags.nodesPath, "nodes", "", "TSV file of graph nodes and their lengths.")
	flag.StringVar(&flags.pathsPath, "paths", "", "TSV file of reference paths and their steps.")
	flag.StringVar(&flags.alignmentsPath, "alignments", "", "vg JSON alignments, optionally compressed.")
	flag.StringVar(&flags.outputPath, "output", "", "Output TSV file. (default stdout)")
	flag.StringVar(&flags.configPath, "config", "", "YAML options file.")
	flag.BoolVar(&flags.multipath, "multipath", false, "Alignments are multipath alignments.")
	flag.BoolVar(&flags.paired, "paired", false, "Alignments are read pairs, with mates interleaved.")
	flag.Float64Var(&flags.fragMean, "frag-mean", 0, "Mean fragment length. Required with -paired.")
	flag.Float64Var(&flags.fragSD, "frag-sd", 0, "Fragment length standard deviation. Required with -paired.")
	overrides := registerOptsFlags(flag.CommandLine, quant.DefaultOpts)

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	opts, err := resolveOpts(ctx, flag.CommandLine, flags.configPath, overrides)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := run(ctx, flags, opts); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("All done")
}
