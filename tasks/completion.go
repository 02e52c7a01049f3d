package tasks

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/wbcontrol/wbc/config"
	"github.com/wbcontrol/wbc/contact"
)

// CompletionCriteria reports whether a task has reached its objective and, if so, which criteria
// were satisfied, joined with ", ".
type CompletionCriteria func(task MetaTask, robots contact.Robots) (bool, string)

type criterion func(task MetaTask, robots contact.Robots) (bool, string)

// criteriaFactory builds a task specific criterion. It returns false for keys it does not know.
type criteriaFactory func(key string, cfg config.AttributeMap) (criterion, bool, error)

// buildCompletionCriteria understands the keys shared by every task:
//   - timeout: seconds, counted as dt per evaluation
//   - eval: upper bound on the norm of the task error
//   - speed: upper bound on the norm of the surface velocity
//   - AND, OR: lists of nested criteria
//
// Every other key goes through extra. All keys of one map must hold at the same time.
func buildCompletionCriteria(dt float64, cfg config.AttributeMap, taskType string, extra criteriaFactory) (CompletionCriteria, error) {
	c, err := buildCriterion(dt, cfg, taskType, extra)
	if err != nil {
		return nil, err
	}
	return CompletionCriteria(c), nil
}

func buildCriterion(dt float64, cfg config.AttributeMap, taskType string, extra criteriaFactory) (criterion, error) {
	if len(cfg) == 0 {
		return nil, errors.Errorf("empty completion criteria for %s task", taskType)
	}

	var errs error
	var parts []criterion
	for _, key := range cfg.Keys() {
		switch key {
		case "AND", "OR":
			subs, err := cfg.AttributeMapSlice(key)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if len(subs) == 0 {
				errs = multierr.Append(errs, errors.Errorf("%s needs at least one completion criteria", key))
				continue
			}
			children := make([]criterion, 0, len(subs))
			for _, sub := range subs {
				child, err := buildCriterion(dt, sub, taskType, extra)
				if err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				children = append(children, child)
			}
			if key == "AND" {
				parts = append(parts, allOf(children))
			} else {
				parts = append(parts, anyOf(children))
			}
		case "timeout":
			timeout, err := threshold(cfg, key)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if dt <= 0 {
				errs = multierr.Append(errs, errors.Errorf("timeout needs a positive dt, got %v", dt))
				continue
			}
			parts = append(parts, timeoutCriterion(dt, timeout))
		case "eval":
			limit, err := threshold(cfg, key)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			parts = append(parts, func(task MetaTask, _ contact.Robots) (bool, string) {
				return task.Eval() <= limit, "eval"
			})
		case "speed":
			limit, err := threshold(cfg, key)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			parts = append(parts, func(task MetaTask, _ contact.Robots) (bool, string) {
				return task.Speed() <= limit, "speed"
			})
		default:
			if extra != nil {
				c, ok, err := extra(key, cfg)
				if err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				if ok {
					parts = append(parts, c)
					continue
				}
			}
			errs = multierr.Append(errs, errors.Errorf("unknown completion criteria %q for %s task", key, taskType))
		}
	}
	if errs != nil {
		return nil, errs
	}
	return allOf(parts), nil
}

// threshold reads a finite, non-negative number.
func threshold(cfg config.AttributeMap, key string) (float64, error) {
	v, err := cfg.TryFloat64(key)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, errors.Errorf("completion criteria %q must be a non-negative number, got %v", key, v)
	}
	return v, nil
}

func timeoutCriterion(dt, timeout float64) criterion {
	// Counting whole cycles avoids accumulating rounding error in a float sum.
	needed := int(math.Ceil(timeout/dt - 1e-9))
	ticks := 0
	return func(MetaTask, contact.Robots) (bool, string) {
		ticks++
		return ticks >= needed, "timeout"
	}
}

// allOf is satisfied when every part is. Every part is evaluated on every call so that timeouts
// keep counting.
func allOf(parts []criterion) criterion {
	return func(task MetaTask, robots contact.Robots) (bool, string) {
		done := true
		msgs := make([]string, 0, len(parts))
		for _, part := range parts {
			ok, msg := part(task, robots)
			if !ok {
				done = false
				continue
			}
			msgs = append(msgs, msg)
		}
		if !done {
			return false, ""
		}
		return true, strings.Join(msgs, ", ")
	}
}

// anyOf is satisfied when one part is and reports the first satisfied part.
func anyOf(parts []criterion) criterion {
	return func(task MetaTask, robots contact.Robots) (bool, string) {
		done := false
		var first string
		for _, part := range parts {
			if ok, msg := part(task, robots); ok && !done {
				done = true
				first = msg
			}
		}
		return done, first
	}
}
