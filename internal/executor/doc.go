// Package executor implements a breadth-first, batch-friendly GraphQL
// executor: field collection, argument resolution, resolver invocation with
// deferred (dataloader) results, value completion with Non-Null null
// propagation, and ordered result assembly.
//
// # Overview
//
// The executor works level by level. Every field instance and every list
// element is a node in a tree that mirrors the response. The executor:
//   - Resolves all nodes of one depth concurrently (a wave), bounded by
//     WithMaxConcurrency.
//   - Parks nodes whose resolver returned a Deferred that has not been
//     dispatched yet, then dispatches every pending batch of the request's
//     dataloader.Registry once the wave is done. N sibling fields backed by
//     one loader therefore cost one batch call per depth.
//   - Completes values by their field type (lists,
//     leafs, objects, abstract types), including Non-Null propagation.
//   - Folds the node tree into a ResultMap with keys in document order,
//     whatever the order in which resolvers finished.
//
// # Preparation
//
// Before execution, the executor:
//  1. Initializes the schema (idempotent) and returns validation errors
//     supplied with the request without executing anything.
//  2. Chooses the operation, by name or because it is the only one.
//  3. Coerces variables against the operation's variable definitions. Any
//     error here stops execution and the result carries no data.
//  4. Picks the root type and the strategy: ParallelStrategy for queries and
//     subscription events, SerialStrategy for mutations, unless configured
//     otherwise.
//
// # Execution Model
//
// A wave runs in three steps:
//
//	A. Resolve
//	   - For each live node, coerce its arguments and directives, build a
//	     schema.ResolveInfo and call the schema's composed resolver (the
//	     middleware chain around the field resolver or DefaultResolve).
//	   - A Future result is awaited in place. A Deferred that reports
//	     Dispatched is awaited in place too; otherwise the node is parked.
//	   - Completing an object creates one child node per collected field and
//	     schedules them for the next wave. List elements are completed in
//	     place and may park individually.
//
//	B. Drain
//	   - While parked nodes remain, dispatch every loader in the registry and
//	     await the parked results. A result that is itself an undispatched
//	     Deferred parks again, so chained loaders are drained in the same
//	     depth.
//
//	C. Advance
//	   - The nodes scheduled during A and B form the next wave. Nodes below an
//	     ancestor that was already nulled are skipped.
//
// SerialStrategy runs this loop once per root field, in document order, so a
// root field and all of its nested work finish before the next one starts.
// ParallelStrategy runs it once for all root fields.
//
// # Errors and Null Propagation
//
// A node records at most one error: the first failure of its own resolution
// or completion. When a Non-Null node fails, the null moves to its parent;
// this repeats until a nullable ancestor absorbs it or the operation root is
// reached, in which case data is null. Ancestors are flagged eagerly so
// work under a doomed subtree is not scheduled, and the response is
// assembled bottom-up from the flags. Errors are never dropped, including
// those of subtrees that were nulled afterwards, and are listed depth-first
// in document order. A node that fails after scheduling its own children
// drops them unresolved.
//
// Resolver panics are recovered per field and per list element, logged and
// reported as `Error trying to resolve field "name".` with the panic as
// Cause. An
// UnhandledErrorHandler may rewrite that error; with WithThrowOnUnhandled
// the rewritten error aborts the request instead. Cancellation of the
// request context aborts the request and ExecuteRequest returns the context
// error; a context error seen by a resolver while the request is still live
// is an ordinary field error.
package executor
