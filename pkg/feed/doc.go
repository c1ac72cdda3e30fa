// Package feed turns cursor-paginated API pages into validated Post records.
//
// Fetcher walks a PageSource until one of these holds, checked in order:
// the target post count is reached, the page ceiling is hit, a page comes back
// empty, or the next cursor is empty or repeats the current one. Sponsored
// items are skipped and malformed items are logged and counted, never fatal.
package feed
