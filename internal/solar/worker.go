package solar

import (
	"sync"
	"time"
)

// rowJob is a band of latitude-scan rows for one worker.
type rowJob struct {
	from, to int
}

// rowsPerJob keeps bands large enough that channel traffic stays small
// next to the trigonometry of a band.
const rowsPerJob = 16

// ComputeMaskConcurrent produces the same mask as ComputeMask, splitting
// the rows across a fixed number of goroutines. workers <= 1 runs serially.
func ComputeMaskConcurrent(t time.Time, width, height, workers int) *Mask {
	if workers <= 1 || height <= rowsPerJob {
		return ComputeMask(t, width, height)
	}

	m := newMask(width, height)
	if len(m.cells) == 0 {
		return m
	}
	s := newSunState(SunAt(t))
	m0 := transits(&s, width)

	jobs := make(chan rowJob, workers*2)

	// Each band writes a disjoint set of output rows, so workers share m
	// without locking.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				fillRows(m, &s, m0, job.from, job.to)
			}
		}()
	}

	for from := 0; from < height; from += rowsPerJob {
		to := from + rowsPerJob
		if to > height {
			to = height
		}
		jobs <- rowJob{from: from, to: to}
	}
	close(jobs)

	wg.Wait()
	return m
}
