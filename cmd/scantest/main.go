// scantest runs one raster scan against a mock or live FSM rack and prints
// summary statistics, exercising the full acquisition path without a server.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/theckman/yacspin"

	"github.com/nasa-jpl/goscan/fsm"
	"github.com/nasa-jpl/goscan/mathx"
	"github.com/nasa-jpl/goscan/raster"
	"github.com/nasa-jpl/goscan/scan"
)

func main() {
	var (
		addr     = flag.String("addr", "", "address of the FSM rack; empty selects the simulator")
		serial   = flag.Bool("serial", false, "connect over RS-422 instead of TCP")
		xCenter  = flag.Float64("x-center", 0, "scan center, x")
		yCenter  = flag.Float64("y-center", 0, "scan center, y")
		xRange   = flag.Float64("x-range", 50, "scan extent, x")
		yRange   = flag.Float64("y-range", 50, "scan extent, y")
		xPoints  = flag.Int("x-points", 32, "samples per row")
		yPoints  = flag.Int("y-points", 32, "rows")
		collects = flag.Int("collects", 50, "collections per sample")
		shots    = flag.Int("shots", 1, "passes over the raster")
		acqRate  = flag.Float64("acq-rate", 100, "counter sample rate, Hz")
	)
	flag.Parse()

	cfg := raster.DefaultConfig()
	cfg.XCenter = *xCenter
	cfg.YCenter = *yCenter
	cfg.XRange = *xRange
	cfg.YRange = *yRange
	cfg.XNumPoints = *xPoints
	cfg.YNumPoints = *yPoints
	cfg.CollectsPerPt = *collects
	cfg.Shots = *shots
	cfg.AcqRate = *acqRate

	var ctl fsm.Controller
	if *addr == "" {
		ctl = fsm.NewMock(true)
	} else {
		ctl = fsm.NewRemote(*addr, *serial)
	}

	e, err := scan.New(cfg, ctl, nil, nil)
	if err != nil {
		log.Fatal(err)
	}

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " scanning",
		SuffixAutoColon: true,
		StopCharacter:   "done",
		StopColors:      []string{"fgGreen"},
	})
	if err != nil {
		log.Fatal(err)
	}
	spinner.Start()
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				shot, row := e.Progress()
				spinner.Message(fmt.Sprintf("shot %d/%d row %d/%d",
					shot+1, cfg.Shots, row+1, cfg.YNumPoints))
			}
		}
	}()
	err = e.Run()
	close(done)
	if err != nil {
		spinner.StopFail()
		log.Fatal(err)
	}
	spinner.Stop()

	avg := e.Average()
	var all []float64
	for j := 0; j < avg.Rows; j++ {
		all = append(all, avg.Row(j)...)
	}
	min, max := mathx.MinMax(all)
	fmt.Printf("scanned %d x %d points over %G x %G about (%G, %G), %d shot(s)\n",
		cfg.XNumPoints, cfg.YNumPoints, cfg.XRange, cfg.YRange, cfg.XCenter, cfg.YCenter, cfg.Shots)
	fmt.Printf("average frame: min %.1f max %.1f mean %.1f counts/s\n",
		min, max, mathx.Mean(all))
}
