// Package analysis classifies fetched posts against a primary author.
package analysis
