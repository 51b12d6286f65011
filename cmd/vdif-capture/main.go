// Command vdif-capture receives a VDIF stream over UDP and writes the frames
// to disk in arrival-restored order.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	vdif "github.com/vlbitools/vdif-go"
)

func main() {
	var (
		addr    = flag.String("listen", ":46227", "UDP address to receive on")
		out     = flag.String("o", "capture.vdif", "output file")
		batch   = flag.Int("batch", 16, "datagrams per batched receive call")
		window  = flag.Int("window", 32, "reorder window depth in frames")
		maxWait = flag.Duration("max-wait", 20*time.Millisecond, "longest a held frame waits for a missing predecessor")
		ring    = flag.Int("ring", 1024, "frame ring buffer capacity")
		vtp     = flag.Bool("vtp", false, "datagrams carry a VTP sequence prefix")
		stats   = flag.Duration("stats", 5*time.Second, "statistics report interval")
		verbose = flag.Bool("v", false, "log receiver diagnostics")
	)
	flag.Parse()

	if *verbose {
		vdif.Logf = func(lvl vdif.LogLevel, f string, args ...interface{}) {
			log.Printf("["+lvl.String()+"] "+f, args...)
		}
	}

	rx, err := vdif.Listen(*addr, &vdif.Config{
		BatchSize:      *batch,
		ReorderDepth:   *window,
		ReorderMaxWait: *maxWait,
		RingCapacity:   *ring,
		VTP:            *vtp,
		DropOnFull:     true,
	})
	if err != nil {
		log.Fatalf("listen %s: %v", *addr, err)
	}

	file, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	w := vdif.NewFrameWriter(file)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// drain the ring to disk
	g.Go(func() error {
		for {
			f, err := rx.Pop(100 * time.Millisecond)
			switch err {
			case nil:
				werr := w.WriteFrame(f)
				f.Recycle()
				if werr != nil {
					return werr
				}
			case vdif.ErrTimeout:
				if ctx.Err() != nil {
					return nil
				}
			case vdif.ErrClosed:
				return nil
			default:
				return err
			}
		}
	})

	// shut the receiver down on signal or socket failure
	g.Go(func() error {
		var reason error
		select {
		case <-ctx.Done():
		case reason = <-rx.ReadError():
		}
		rx.Close()
		return reason
	})

	// periodic statistics
	g.Go(func() error {
		ticker := time.NewTicker(*stats)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				report(rx.Snmp().Copy())
			case <-ctx.Done():
				return nil
			}
		}
	})

	err = g.Wait()
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	report(rx.Snmp().Copy())
	if err != nil {
		log.Fatalf("capture: %v", err)
	}
}

func report(s *vdif.Snmp) {
	log.Printf("pkts:%d bytes:%d frames:%d reordered:%d late:%d dups:%d gaps:%d lost:%d drops:%d hdrerrs:%d lenerrs:%d",
		s.InPkts, s.InBytes, s.OutFrames, s.Reordered, s.LateFrames,
		s.DupFrames, s.GapEvents, s.LostFrames, s.RingDrops,
		s.HeaderErrs, s.LengthErrs)
}
