package testutil

import (
	"sync"
	"sync/atomic"

	dErrors "seqrpay/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes     int32
	Errors        int32
	DoubleReports int32
	NotReady      int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.DoubleReports + r.NotReady
}

// RunConcurrent executes fn in parallel goroutines released together and
// buckets the results by domain error code.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, errs, doubles, notReady atomic.Int32
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeDoubleReport):
				doubles.Add(1)
			case dErrors.HasCode(err, dErrors.CodeNotReady):
				notReady.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes:     successes.Load(),
		Errors:        errs.Load(),
		DoubleReports: doubles.Load(),
		NotReady:      notReady.Load(),
	}
}

// RunConcurrentCollect executes fn in parallel and collects all errors.
func RunConcurrentCollect(goroutines int, fn func(idx int) error) (successes int32, errs []error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var successCount atomic.Int32
	collected := make([]error, 0)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if err := fn(idx); err != nil {
				mu.Lock()
				collected = append(collected, err)
				mu.Unlock()
				return
			}
			successCount.Add(1)
		}(i)
	}

	wg.Wait()
	return successCount.Load(), collected
}
