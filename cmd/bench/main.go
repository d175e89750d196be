// Command bench runs a synthetic block workload against the cache and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/bufcache/bcache"
	"github.com/IvanBrykalov/bufcache/device"
	pmet "github.com/IvanBrykalov/bufcache/metrics/prom"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const devID = 1

func main() {
	// ---- Flags ----
	var (
		buffers   = flag.Int("buffers", 4096, "pool size (buffers)")
		buckets   = flag.Int("buckets", 0, "number of buckets (0=auto)")
		blockSize = flag.Int("bs", 4096, "block size in bytes")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		blocks = flag.Int("blocks", 1_000_000, "addressable blocks on the device")
		zipfS  = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV  = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed   = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		backing = flag.String("file", "", "back the device with a file at this path (empty = in-memory)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "bufcache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build device ----
	var dev device.Device
	if *backing != "" {
		f, err := device.OpenFile(*backing, *blockSize)
		if err != nil {
			log.Fatalf("open backing file: %v", err)
		}
		defer func() {
			_ = f.Close()
			_ = os.Remove(*backing)
		}()
		dev = f
	} else {
		dev = device.NewMem(*blockSize)
	}

	// ---- Build cache ----
	c := bcache.New(bcache.Options{
		BlockSize: *blockSize,
		Buffers:   *buffers,
		Buckets:   *buckets,
		Metrics:   metrics,
	})
	defer func() { _ = c.Close() }()
	if err := c.Mount(devID, dev); err != nil {
		log.Fatalf("mount: %v", err)
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	blocksMax := uint64(*blocks - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, writes, total, failures uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, blocksMax)

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				blk := uint32(localZipf.Uint64())
				b, err := c.Read(context.Background(), devID, blk)
				if err != nil {
					atomic.AddUint64(&failures, 1)
					continue
				}
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					_ = b.Data()[0]
				} else {
					atomic.AddUint64(&writes, 1)
					binary.LittleEndian.PutUint64(b.Data(), localR.Uint64())
					if err := c.Write(context.Background(), b); err != nil {
						atomic.AddUint64(&failures, 1)
					}
				}
				c.Release(b)
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	readsN := atomic.LoadUint64(&reads)
	writesN := atomic.LoadUint64(&writes)
	failuresN := atomic.LoadUint64(&failures)
	st := c.Stats()

	hitRate := 0.0
	if st.Hits+st.Misses > 0 {
		hitRate = float64(st.Hits) / float64(st.Hits+st.Misses) * 100
	}

	fmt.Printf("buffers=%d buckets=%d bs=%d workers=%d blocks=%d dur=%v seed=%d\n",
		*buffers, *buckets, *blockSize, workersN, *blocks, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d  failures=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writesN, failuresN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  evictions=%d\n",
		st.Hits, st.Misses, hitRate, st.Evictions)
	fmt.Printf("device: reads=%d writes=%d  Len()=%d\n", st.DeviceReads, st.DeviceWrites, c.Len())
}
