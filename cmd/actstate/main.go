// Package main provides the actstate CLI for subprocess-based interop.
//
// This CLI reads JSON loop state from stdin, performs operations, and
// writes the result to stdout. Workers in other languages shell out to it
// to create, validate, and evaluate state dicts with the same semantics
// the in-process engine applies.
//
// Usage:
//
//	# Create a new loop state
//	echo '{"topic": "research", "session_id": "s1"}' | actstate create
//
//	# Check whether a state admits another iteration
//	cat state.json | actstate can-continue
//
//	# Snapshot a state into a result dict
//	cat state.json | actstate result
//
//	# Fingerprint a plan for repetition comparison
//	echo '{"actions":[{"type":"web_search","query":"q"}]}' | actstate fingerprint
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
	"github.com/jeeves-cluster-organization/actengine/actcore/config"
	"github.com/jeeves-cluster-organization/actengine/actcore/governor"
	"github.com/jeeves-cluster-organization/actengine/actcore/typeutil"
)

const (
	cmdCreate      = "create"
	cmdValidate    = "validate"
	cmdCanContinue = "can-continue"
	cmdResult      = "result"
	cmdFingerprint = "fingerprint"
	cmdParsePlan   = "parse-plan"
	cmdVersion     = "version"
)

// Version information
const (
	Version   = "1.0.0"
	BuildTime = "2026-08-12"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case cmdVersion:
		handleVersion()
	case cmdCreate:
		handleCreate()
	case cmdValidate:
		handleValidate()
	case cmdCanContinue:
		handleCanContinue()
	case cmdResult:
		handleResult()
	case cmdFingerprint:
		handleFingerprint()
	case cmdParsePlan:
		handleParsePlan()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: actstate <command>

Commands:
  create        Create a new loop state from input JSON
  validate      Validate loop state JSON structure
  can-continue  Check whether a state admits another iteration
  result        Snapshot a state dict into a result dict
  fingerprint   Fingerprint a plan for repetition comparison
  parse-plan    Extract an action plan from raw model output
  version       Print version information

Input/Output:
  All commands read from stdin and write JSON to stdout.
  Errors are written to stderr.

Evaluation input:
  can-continue and result accept either a bare state dict or an
  envelope {"state": {...}, "config": {...}, "governor": {...}}
  carrying ceiling overrides. Omitted tables use defaults.

Examples:
  echo '{"topic":"research","session_id":"s1"}' | actstate create
  cat state.json | actstate can-continue
  cat state.json | actstate result`)
}

// handleVersion prints version information.
func handleVersion() {
	output := map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"go_version": "1.24+",
	}
	writeJSON(output)
}

// handleCreate creates a new loop state from input.
func handleCreate() {
	input, err := readInput()
	if err != nil {
		writeError("read_error", err.Error())
		os.Exit(1)
	}

	var createInput struct {
		Topic     string `json:"topic"`
		SessionID string `json:"session_id"`
	}

	if err := json.Unmarshal(input, &createInput); err != nil {
		writeError("parse_error", fmt.Sprintf("Invalid JSON: %s", err.Error()))
		os.Exit(1)
	}

	state := act.NewLoopState(createInput.Topic, createInput.SessionID)
	writeJSON(state.ToStateDict())
}

// handleValidate validates the loop state JSON structure.
func handleValidate() {
	input, err := readInput()
	if err != nil {
		writeError("read_error", err.Error())
		os.Exit(1)
	}

	var stateDict map[string]any
	if err := json.Unmarshal(input, &stateDict); err != nil {
		result := map[string]any{
			"valid":  false,
			"errors": []string{fmt.Sprintf("Invalid JSON: %s", err.Error())},
		}
		writeJSON(result)
		return
	}

	errors := []string{}

	// Missing fields get defaults; present fields must carry the right type.
	for _, field := range []string{"loop_id", "topic", "session_id", "last_action_type"} {
		if stateDict[field] == nil {
			continue
		}
		if _, ok := stateDict[field].(string); !ok {
			errors = append(errors, fmt.Sprintf("Field '%s' must be a string", field))
		}
	}
	for _, field := range []string{"fatigue", "iteration_number"} {
		if stateDict[field] == nil {
			continue
		}
		if _, ok := typeutil.SafeFloat64(stateDict[field]); !ok {
			errors = append(errors, fmt.Sprintf("Field '%s' must be a number", field))
		}
	}

	if stateDict["act_history"] != nil {
		items, ok := typeutil.SafeSlice(stateDict["act_history"])
		if !ok {
			errors = append(errors, "Field 'act_history' must be a list")
		}
		for i, item := range items {
			m, ok := typeutil.SafeMapStringAny(item)
			if !ok {
				errors = append(errors, fmt.Sprintf("act_history[%d] must be an object", i))
				continue
			}
			if err := act.ActionResultFromDict(m).Validate(); err != nil {
				errors = append(errors, fmt.Sprintf("act_history[%d]: %s", i, err.Error()))
			}
		}
	}

	state := act.FromStateDict(stateDict)

	result := map[string]any{
		"valid":   len(errors) == 0,
		"errors":  errors,
		"loop_id": state.LoopID,
	}
	writeJSON(result)
}

// handleCanContinue evaluates the governor ceilings for a state snapshot.
func handleCanContinue() {
	state, loopCfg, govCfg, ok := readEvaluationInput()
	if !ok {
		os.Exit(1)
	}

	canContinue, reason := governor.EvaluateState(state, loopCfg, govCfg)

	var reasonOut *string
	if reason.IsSet() {
		r := string(reason)
		reasonOut = &r
	}

	if govCfg == nil {
		govCfg = config.GetGovernorConfig()
	}
	result := map[string]any{
		"can_continue":       canContinue,
		"termination_reason": reasonOut,
		"iteration_number":   state.IterationNumber,
		"fatigue":            state.Fatigue,
		"fatigue_budget":     govCfg.FatigueBudget,
	}
	writeJSON(result)
}

// handleResult snapshots a state dict into a result dict.
func handleResult() {
	input, err := readInput()
	if err != nil {
		writeError("read_error", err.Error())
		os.Exit(1)
	}

	var payload map[string]any
	if err := json.Unmarshal(input, &payload); err != nil {
		writeError("parse_error", fmt.Sprintf("Invalid JSON: %s", err.Error()))
		os.Exit(1)
	}

	stateDict, _, govCfg, ok := splitEvaluationPayload(payload)
	if !ok {
		os.Exit(1)
	}
	state := act.FromStateDict(stateDict)
	if govCfg == nil {
		govCfg = config.GetGovernorConfig()
	}

	reason := act.TerminationReason(typeutil.SafeStringDefault(payload["termination_reason"], ""))
	if !reason.IsSet() {
		for i := len(state.IterationLogs) - 1; i >= 0; i-- {
			if state.IterationLogs[i].TerminationReason.IsSet() {
				reason = state.IterationLogs[i].TerminationReason
				break
			}
		}
	}

	// Critic audits survive in the history; the remaining critic counters are
	// run-scoped and cannot be reconstructed from a snapshot.
	critic := act.CriticTelemetry{}
	for _, r := range state.ActHistory {
		if r.Status == act.ActionStatusCriticCorrection {
			critic.Corrections++
		}
	}

	fatigue := act.FatigueTelemetry{
		Final:           state.Fatigue,
		Budget:          govCfg.FatigueBudget,
		GrowthRate:      govCfg.FatigueGrowthRate,
		WarningInjected: state.BudgetWarningInjected,
	}
	if govCfg.FatigueBudget > 0 {
		fatigue.Utilization = state.Fatigue / govCfg.FatigueBudget
	}
	if n := len(state.IterationLogs); n > 0 {
		fatigue.NetValue = state.IterationLogs[n-1].NetValue
	}

	result := act.BuildResult(state, reason, critic, fatigue)
	writeJSON(result.ToResultDict())
}

// handleFingerprint renders a plan signature for repetition comparison.
func handleFingerprint() {
	input, err := readInput()
	if err != nil {
		writeError("read_error", err.Error())
		os.Exit(1)
	}

	plan, err := act.ParsePlan(string(input))
	if err != nil {
		writeError("parse_error", err.Error())
		os.Exit(1)
	}

	fingerprint := act.Fingerprint(plan.Actions)
	types := make([]string, 0, len(plan.Actions))
	for t := range act.TypeSet(plan.Actions) {
		types = append(types, t)
	}
	sort.Strings(types)

	result := map[string]any{
		"fingerprint":  fingerprint,
		"digest":       act.FingerprintDigest(fingerprint),
		"action_count": len(plan.Actions),
		"action_types": types,
	}
	writeJSON(result)
}

// handleParsePlan extracts an action plan from raw model output.
func handleParsePlan() {
	input, err := readInput()
	if err != nil {
		writeError("read_error", err.Error())
		os.Exit(1)
	}

	plan, err := act.ParsePlan(string(input))
	if err != nil {
		writeError("parse_error", err.Error())
		os.Exit(1)
	}

	result := map[string]any{
		"actions":    plan.Actions,
		"confidence": plan.Confidence,
	}
	writeJSON(result)
}

// readEvaluationInput reads and splits the input for evaluation commands,
// returning the restored state and any ceiling overrides.
func readEvaluationInput() (*act.LoopState, *config.LoopConfig, *config.GovernorConfig, bool) {
	input, err := readInput()
	if err != nil {
		writeError("read_error", err.Error())
		return nil, nil, nil, false
	}

	var payload map[string]any
	if err := json.Unmarshal(input, &payload); err != nil {
		writeError("parse_error", fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return nil, nil, nil, false
	}

	stateDict, loopCfg, govCfg, ok := splitEvaluationPayload(payload)
	if !ok {
		return nil, nil, nil, false
	}
	return act.FromStateDict(stateDict), loopCfg, govCfg, true
}

// splitEvaluationPayload separates the state dict from optional ceiling
// overrides. A payload with a "state" key is treated as an envelope; anything
// else is the state dict itself. Provided tables are validated before use.
func splitEvaluationPayload(payload map[string]any) (map[string]any, *config.LoopConfig, *config.GovernorConfig, bool) {
	if payload["state"] == nil {
		return payload, nil, nil, true
	}

	stateDict, ok := typeutil.SafeMapStringAny(payload["state"])
	if !ok {
		writeError("parse_error", "Field 'state' must be an object")
		return nil, nil, nil, false
	}

	var loopCfg *config.LoopConfig
	if payload["config"] != nil {
		m, ok := typeutil.SafeMapStringAny(payload["config"])
		if !ok {
			writeError("parse_error", "Field 'config' must be an object")
			return nil, nil, nil, false
		}
		loopCfg = config.LoopConfigFromMap(m)
		if err := loopCfg.Validate(); err != nil {
			writeError("config_error", err.Error())
			return nil, nil, nil, false
		}
	}

	var govCfg *config.GovernorConfig
	if payload["governor"] != nil {
		m, ok := typeutil.SafeMapStringAny(payload["governor"])
		if !ok {
			writeError("parse_error", "Field 'governor' must be an object")
			return nil, nil, nil, false
		}
		govCfg = config.GovernorConfigFromMap(m)
		if err := govCfg.Validate(); err != nil {
			writeError("config_error", err.Error())
			return nil, nil, nil, false
		}
	}

	return stateDict, loopCfg, govCfg, true
}

// readInput reads all input from stdin.
func readInput() ([]byte, error) {
	reader := bufio.NewReader(os.Stdin)
	return io.ReadAll(reader)
}

// writeJSON writes a JSON object to stdout.
func writeJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %s\n", err.Error())
		os.Exit(1)
	}
}

// writeError writes an error response to stdout.
func writeError(code, message string) {
	result := map[string]any{
		"error":   true,
		"code":    code,
		"message": message,
	}
	writeJSON(result)
}
