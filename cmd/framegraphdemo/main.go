// Command framegraphdemo drives a small toy frame through the frame graph
// three times: a plain pass chain, a chain with an unused branch the
// compiler culls, and a chain using moveResource. It prints a console
// summary of which passes survived compilation each time.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gookit/color"
	"github.com/vk/framegraph/internal/backend"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/fakebackend"
	"github.com/vk/framegraph/internal/fg"
)

func main() {
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	flag.Parse()

	logger := newLogger(*logLevel, *logFormat)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	runDemo(ctx, "linear chain", buildLinearChain)
	runDemo(ctx, "dead branch", buildDeadBranch)
	runDemo(ctx, "ping-pong move", buildPingPong)
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

func runDemo(ctx context.Context, name string, build func(*fg.FrameGraph) []fg.PassRef) {
	color.Bold.Printf("\n=== %s ===\n", name)

	graph := fg.New()
	passes := build(graph)

	if err := graph.Compile(ctx); err != nil {
		color.Red.Printf("compile failed: %v\n", err)
		return
	}

	dev := fakebackend.New(ctx)
	if err := graph.Execute(ctx, dev); err != nil {
		color.Red.Printf("execute failed: %v\n", err)
		return
	}

	for _, p := range passes {
		if p.Culled() {
			color.Gray.Printf("  [culled]  %s\n", p.Name())
		} else {
			color.Green.Printf("  [ran]     %s\n", p.Name())
		}
	}
	fmt.Printf("  backend calls: %d, flushes: %d\n", len(dev.Calls), dev.FlushCount)
}

func textureDesc(w, h uint32) backend.TextureDescriptor {
	return backend.TextureDescriptor{
		Width: w, Height: h, Depth: 1, MipLevels: 1, SampleCount: 1,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment,
	}
}

// buildLinearChain declares three passes: one creates a texture, one
// blurs it into a second texture, one presents the result.
func buildLinearChain(graph *fg.FrameGraph) []fg.PassRef {
	var scene fg.TextureHandle

	p1 := graph.AddPass("gbuffer", func(b *fg.Builder) {
		scene = b.CreateTexture("scene", textureDesc(1920, 1080))
		var err error
		scene, err = b.Write(scene)
		if err != nil {
			panic(err)
		}
	}, func(ctx context.Context, res *fg.Resources) error {
		_, err := res.Texture(scene)
		return err
	})

	var blurred fg.TextureHandle
	p2 := graph.AddPass("blur", func(b *fg.Builder) {
		if err := b.Read(scene); err != nil {
			panic(err)
		}
		blurred = b.CreateTexture("blurred", textureDesc(1920, 1080))
		var err error
		blurred, err = b.Write(blurred)
		if err != nil {
			panic(err)
		}
	}, func(ctx context.Context, res *fg.Resources) error {
		if _, err := res.Texture(scene); err != nil {
			return err
		}
		_, err := res.Texture(blurred)
		return err
	})

	p3 := graph.AddPass("present", func(b *fg.Builder) {
		if err := b.Read(blurred); err != nil {
			panic(err)
		}
		b.SideEffect()
	}, func(ctx context.Context, res *fg.Resources) error {
		_, err := res.Texture(blurred)
		return err
	})

	graph.Present(blurred)
	return []fg.PassRef{p1, p2, p3}
}

// buildDeadBranch declares an extra pass whose output nothing reads or
// presents; Compile should cull it along with the texture it produces.
func buildDeadBranch(graph *fg.FrameGraph) []fg.PassRef {
	var scene, unused fg.TextureHandle

	p1 := graph.AddPass("gbuffer", func(b *fg.Builder) {
		scene = b.CreateTexture("scene", textureDesc(1920, 1080))
		var err error
		scene, err = b.Write(scene)
		if err != nil {
			panic(err)
		}
	}, func(ctx context.Context, res *fg.Resources) error {
		_, err := res.Texture(scene)
		return err
	})

	p2 := graph.AddPass("unused-ao-pass", func(b *fg.Builder) {
		if err := b.Read(scene); err != nil {
			panic(err)
		}
		unused = b.CreateTexture("ao", textureDesc(960, 540))
		var err error
		unused, err = b.Write(unused)
		if err != nil {
			panic(err)
		}
	}, func(ctx context.Context, res *fg.Resources) error {
		_, err := res.Texture(unused)
		return err
	})

	p3 := graph.AddPass("present", func(b *fg.Builder) {
		if err := b.Read(scene); err != nil {
			panic(err)
		}
		b.SideEffect()
	}, func(ctx context.Context, res *fg.Resources) error {
		_, err := res.Texture(scene)
		return err
	})

	graph.Present(scene)
	return []fg.PassRef{p1, p2, p3}
}

// buildPingPong exercises moveResource: pass A produces x, pass B produces
// y, y is moved onto x, and pass C reads x, which after the alias reads
// what B produced. A's original output is disconnected and culled.
func buildPingPong(graph *fg.FrameGraph) []fg.PassRef {
	var x, y fg.TextureHandle

	p1 := graph.AddPass("producer-a", func(b *fg.Builder) {
		x = b.CreateTexture("x", textureDesc(512, 512))
		var err error
		x, err = b.Write(x)
		if err != nil {
			panic(err)
		}
	}, func(ctx context.Context, res *fg.Resources) error {
		_, err := res.Texture(x)
		return err
	})

	p2 := graph.AddPass("producer-b", func(b *fg.Builder) {
		y = b.CreateTexture("y", textureDesc(512, 512))
		var err error
		y, err = b.Write(y)
		if err != nil {
			panic(err)
		}
	}, func(ctx context.Context, res *fg.Resources) error {
		_, err := res.Texture(y)
		return err
	})

	if err := graph.MoveResource(y, x); err != nil {
		panic(err)
	}

	p3 := graph.AddPass("present", func(b *fg.Builder) {
		if err := b.Read(x); err != nil {
			panic(err)
		}
		b.SideEffect()
	}, func(ctx context.Context, res *fg.Resources) error {
		_, err := res.Texture(x)
		return err
	})

	graph.Present(x)
	return []fg.PassRef{p1, p2, p3}
}
