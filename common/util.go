package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"
)

type TimeItKey int
type TimeItType struct {
	timers  map[string]time.Time
	results string
	logger  *log.Logger
}

const (
	// To convert mg/dL to mmol/L and vice-versa
	mgdlPerMmoll float64 = 18.01577
	UnitMgdL             = "mg/dL"
	UnitMmolL            = "mmol/L"
)

// ConvertBG is a common util function to convert bg values
// to/from "mg/dL" and "mmol/L"
//
// - param: value The value to convert
//
// - param: unit The unit of the passed value
//
// - return: The converted value in the opposite unit
func ConvertBG(value float64, unit string) (float64, error) {
	if value < 0 {
		return 0, errors.New("Invalid glycemia value")
	}
	if unit == UnitMgdL {
		return math.Round(10.0*value/mgdlPerMmoll) / 10, nil
	}
	if unit == UnitMmolL {
		return math.Round(value * mgdlPerMmoll), nil
	}
	return 0, errors.New("Invalid parameter unit")
}

// TimeItContext adds the step timers to ctx, misuse of a timer is reported on logger
func TimeItContext(ctx context.Context, logger *log.Logger) context.Context {
	if logger == nil {
		logger = log.Default()
	}
	value := &TimeItType{
		timers: make(map[string]time.Time),
		logger: logger,
	}
	return context.WithValue(ctx, TimeItKey(0), value)
}

func timeItValue(ctx context.Context) *TimeItType {
	value, _ := ctx.Value(TimeItKey(0)).(*TimeItType)
	return value
}

func TimeIt(ctx context.Context, name string) {
	ctxValue := timeItValue(ctx)
	if ctxValue == nil {
		return
	}
	if _, present := ctxValue.timers[name]; present {
		ctxValue.logger.Printf("timeIt: Timer %s already started", name)
		return
	}
	ctxValue.timers[name] = time.Now()
}

func TimeEnd(ctx context.Context, name string) int64 {
	ctxValue := timeItValue(ctx)
	if ctxValue == nil {
		return 0
	}
	start, present := ctxValue.timers[name]
	if !present {
		ctxValue.logger.Printf("timeEnd: Timer %s has not started", name)
		return 0
	}
	delete(ctxValue.timers, name)
	dur := time.Since(start).Milliseconds()
	if len(ctxValue.results) == 0 {
		ctxValue.results = fmt.Sprintf("%s:%dms", name, dur)
	} else {
		ctxValue.results = fmt.Sprintf("%s %s:%dms", ctxValue.results, name, dur)
	}
	return dur
}

func TimeResults(ctx context.Context) string {
	ctxValue := timeItValue(ctx)
	if ctxValue == nil {
		return ""
	}
	return ctxValue.results
}
