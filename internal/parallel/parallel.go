// Package parallel implements the bounded-concurrency fan-out/fan-in
// mechanics: worker pool, join/error policies, and fan-in ranking
// (spec §4.7). It is independent of the execution engine; the engine
// supplies branch execution via the BranchRunner interface.
package parallel

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gutelius/attractor/internal/runtime"
)

// DefaultMaxParallel is the default bound on concurrent branches.
const DefaultMaxParallel = 4

// JoinPolicy is the fan-out completion rule (spec §4.7).
type JoinPolicy string

const (
	JoinWaitAll      JoinPolicy = "wait_all"
	JoinFirstSuccess JoinPolicy = "first_success"
	JoinKOfN         JoinPolicy = "k_of_n"
)

// ErrorPolicy is the fan-out failure rule (spec §4.7).
type ErrorPolicy string

const (
	ErrorContinue ErrorPolicy = "continue"
	ErrorFailFast ErrorPolicy = "fail_fast"
	ErrorIgnore   ErrorPolicy = "ignore"
)

// Branch names one fan-out branch: an edge target id to start at.
type Branch struct {
	ID           string
	StartNodeID  string
	BranchContext *runtime.Context
}

// Result is a branch's final, structured record (spec §4.7 "Branches
// surface results as structured records").
type Result struct {
	BranchID       string
	Status         runtime.Status
	Notes          string
	Score          float64
	HasScore       bool
	ContextUpdates map[string]any
}

// BranchRunner executes one branch sub-run to completion: starting at
// startNodeID and ending the first time it reaches a fan-in node, an exit
// node, or a failure with no route (spec §4.7 "Fan-out"). Supplied by the
// engine, which alone knows how to traverse a subtree.
type BranchRunner interface {
	RunBranch(ctx context.Context, branchID, startNodeID string, branchContext *runtime.Context) Result
}

// Config controls fan-out behavior.
type Config struct {
	MaxParallel int
	Join        JoinPolicy
	Error       ErrorPolicy
	K           int // required, positive, when Join == JoinKOfN
}

// FanOut runs every branch concurrently (bounded by cfg.MaxParallel),
// applies cfg.Join/cfg.Error, and returns the fan-out node's own outcome
// status plus every branch's result (always len(branches), even when
// cancelled — cancelled branches still appear with their last-seen status).
func FanOut(ctx context.Context, runner BranchRunner, branches []Branch, cfg Config) (runtime.Status, []Result) {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultMaxParallel
	}
	n := len(branches)
	results := make([]Result, n)

	branchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, cfg.MaxParallel)
	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0
	failCount := 0
	doneCount := 0
	decided := false
	var decidedStatus runtime.Status

	for i, b := range branches {
		wg.Add(1)
		go func(i int, b Branch) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if branchCtx.Err() != nil {
				results[i] = Result{BranchID: b.ID, Status: runtime.StatusSkipped}
				return
			}
			res := runner.RunBranch(branchCtx, b.ID, b.StartNodeID, b.BranchContext)
			results[i] = res

			mu.Lock()
			defer mu.Unlock()
			doneCount++
			effective := effectiveStatus(res.Status, cfg.Error)
			if effective.IsSuccessClass() {
				successCount++
			} else {
				failCount++
			}

			switch cfg.Join {
			case JoinFirstSuccess:
				if effective.IsSuccessClass() && !decided {
					decided = true
					decidedStatus = runtime.StatusSuccess
					cancel()
				}
			case JoinKOfN:
				if successCount >= cfg.K && !decided {
					decided = true
					decidedStatus = runtime.StatusSuccess
					cancel()
				} else if successCount+((n-doneCount)) < cfg.K && !decided {
					// Remaining branches (including in-flight ones) cannot
					// possibly reach k successes.
					decided = true
					decidedStatus = runtime.StatusFail
					cancel()
				}
			}
			if cfg.Error == ErrorFailFast && !effective.IsSuccessClass() && !decided {
				decided = true
				decidedStatus = runtime.StatusFail
				cancel()
			}
		}(i, b)
	}
	wg.Wait()

	if decided {
		return decidedStatus, results
	}
	return joinWaitAllStatus(results, cfg.Error), results
}

func effectiveStatus(s runtime.Status, errPolicy ErrorPolicy) runtime.Status {
	if errPolicy == ErrorIgnore && !s.IsSuccessClass() {
		return runtime.StatusSuccess
	}
	return s
}

func joinWaitAllStatus(results []Result, errPolicy ErrorPolicy) runtime.Status {
	allSuccess := true
	anySuccess := false
	for _, r := range results {
		eff := effectiveStatus(r.Status, errPolicy)
		if eff.IsSuccessClass() {
			anySuccess = true
		} else {
			allSuccess = false
		}
	}
	if allSuccess {
		return runtime.StatusSuccess
	}
	if anySuccess {
		return runtime.StatusPartialSuccess
	}
	return runtime.StatusFail
}

// Rank orders results by (success_class desc, score desc, id asc) and
// returns the best one, per spec §4.7 "Fan-in".
func Rank(results []Result) (Result, bool) {
	if len(results) == 0 {
		return Result{}, false
	}
	sorted := append([]Result{}, results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ra, rb := a.Status.SuccessRank(), b.Status.SuccessRank(); ra != rb {
			return ra > rb
		}
		if a.HasScore != b.HasScore {
			return a.HasScore // results with a score outrank those without
		}
		if a.HasScore && a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.BranchID < b.BranchID
	})
	return sorted[0], true
}

// ValidateConfig checks that a k_of_n join carries a usable k.
func ValidateConfig(cfg Config, branchCount int) error {
	if cfg.Join == JoinKOfN {
		if cfg.K <= 0 {
			return fmt.Errorf("parallel: k_of_n join requires a positive k")
		}
		if cfg.K > branchCount {
			return fmt.Errorf("parallel: k_of_n join requires k (%d) <= branch count (%d)", cfg.K, branchCount)
		}
	}
	return nil
}
