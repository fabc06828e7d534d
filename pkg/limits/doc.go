// Package limits enforces per-tenant request rates and cost budgets for
// cascade callers. The limiter is consulted before invoking the
// orchestrator, never inside it: CheckLimit admits or rejects an estimated
// spend, and RecordUsage books the realized cost afterwards.
//
// Request rates use a token bucket; cost budgets use rolling windows over
// an hour and a day. Realized usage can additionally be persisted through a
// UsageStore so budgets survive restarts.
package limits
