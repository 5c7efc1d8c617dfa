package citeflow

import (
	"github.com/kailas-cloud/citeflow/internal/domain/highlight"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
	"github.com/kailas-cloud/citeflow/internal/domain/source"
	domstream "github.com/kailas-cloud/citeflow/internal/domain/stream"
	"github.com/kailas-cloud/citeflow/internal/usecase/resolve"
)

// Tree is the section tree of one document.
type Tree = section.Tree

// Node is one section of a tree. Page indexes are 1-based and inclusive.
type Node = section.Node

// Source is one numbered citation resolved to a section.
type Source = source.Source

// Highlight is a sentence span of a section relevant to the query.
type Highlight = highlight.Highlight

// Result is a normalized answer with its sources ordered by citation number.
type Result = resolve.Result

// Event is one message of a resolved stream.
type Event = domstream.Event

// EventType discriminates stream events.
type EventType = domstream.EventType

// Stream event types produced by Finish.
const (
	EventSource = domstream.EventSource
	EventDone   = domstream.EventDone
)
