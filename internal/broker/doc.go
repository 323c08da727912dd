// Package broker defines core types shared across the crawl subsystems.
package broker
