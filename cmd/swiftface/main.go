// The program swiftface reconstructs a human-readable declarative
// interface for a compiled Mach-O image that carries reflective metadata
// sections.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin"

	"github.com/swiftface/swiftface/internal/eventbus"
	"github.com/swiftface/swiftface/internal/interfaceindexer"
	"github.com/swiftface/swiftface/internal/machoimage"
	"github.com/swiftface/swiftface/internal/metadata"
	"github.com/swiftface/swiftface/internal/printer"
	"github.com/swiftface/swiftface/internal/progress"
	"github.com/swiftface/swiftface/internal/util"
)

const version = "0.1.0"

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func realMain() error {
	var (
		imagePath          string
		sharedCachePath    string
		outFile            string
		showCImportedTypes bool
		emitOffsetComments bool
		printTypeLayout    bool
		printEnumLayout    bool
		printStripped      bool
		noProgress         bool
		verboseOutput      bool
	)

	app := kingpin.New("swiftface", "swiftface reconstructs a declarative interface from a Mach-O image's reflective metadata.").
		Version(version)
	app.HelpFlag.Short('h')
	app.VersionFlag.Short('v')
	app.HelpFlag.Hidden()

	app.Arg("image", "Path to the Mach-O image to inspect.").Required().StringVar(&imagePath)
	app.Flag("sharedCache", "Path to a dyld shared cache containing the image.").PlaceHolder("path").StringVar(&sharedCachePath)
	app.Flag("out", "The output file.").Short('o').Default("-").StringVar(&outFile)
	app.Flag("showCImportedTypes", "Include C-imported types in the rendered interface.").Default("false").BoolVar(&showCImportedTypes)
	app.Flag("offsetComments", "Emit a trailing offset comment on each declaration.").Default("false").BoolVar(&emitOffsetComments)
	app.Flag("typeLayout", "Emit field-offset comments for structs and classes.").Default("false").BoolVar(&printTypeLayout)
	app.Flag("enumLayout", "Emit field-offset comments for enum cases.").Default("false").BoolVar(&printEnumLayout)
	app.Flag("strippedSymbolicItem", "Annotate resolved vtable symbols on functions.").Default("false").BoolVar(&printStripped)
	app.Flag("noProgress", "Do not print phase progress.").Default("false").BoolVar(&noProgress)
	app.Flag("verbose", "Display timings alongside phase progress.").Default("false").BoolVar(&verboseOutput)

	if _, err := app.Parse(os.Args[1:]); err != nil {
		return err
	}

	img, err := machoimage.Open(imagePath, sharedCachePath)
	if err != nil {
		return fmt.Errorf("open image: %v", err)
	}
	defer img.Close()

	bus := eventbus.New()

	progressOpts := progress.Options{Verbosity: progress.DefaultOutput, ShowAnimations: !noProgress}
	if noProgress {
		progressOpts.Verbosity = progress.NoOutput
	} else if verboseOutput {
		progressOpts.Verbosity = progress.VerboseOutput
	}
	bus.Subscribe(progress.NewReporter(progressOpts).Handle)

	reader := metadata.NewReader(metadata.GoMachODecoder{})
	indexer := interfaceindexer.New(img, reader, bus, interfaceindexer.Config{ShowCImportedTypes: showCImportedTypes})

	start := time.Now()
	if err := indexer.Prepare(context.Background()); err != nil {
		return fmt.Errorf("prepare: %v", err)
	}
	if diags := indexer.Diagnostics(); diags != nil && verboseOutput {
		fmt.Fprintln(os.Stderr, diags)
	}

	p := printer.New(indexer.Storage(), reader, img, printer.Options{
		EmitOffsetComments:        emitOffsetComments,
		PrintTypeLayout:           printTypeLayout,
		PrintEnumLayout:           printEnumLayout,
		PrintStrippedSymbolicItem: printStripped,
	})
	chunks := p.Print(indexer)

	out := os.Stdout
	if outFile != "-" {
		f, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("create output file: %v", err)
		}
		defer f.Close()
		out = f
	}
	for _, c := range chunks {
		fmt.Fprint(out, c.Text)
	}

	if verboseOutput {
		fmt.Fprintln(os.Stderr, "Processed in", util.HumanElapsed(start))
	}

	return nil
}
