// Package selection collects a reviewer's choice of hooks for each work item.
//
// A Provider posts the items somewhere a person can answer (a Slack thread
// per item, or prompt files in a drop directory) and later returns the raw
// reply texts it has seen. Interpreting replies is a pure function, Step,
// driven by a Schedule that owns polling cadence, the overall deadline, and
// cancellation. Providers that can be notified of new replies implement
// Waiter so the schedule wakes early instead of sleeping the full interval.
//
// Reviewers answer with at least three numbers (the first three are used,
// 1-based) or a skip keyword. When no reply arrives at all the caller falls
// back to AutoSelect.
package selection
