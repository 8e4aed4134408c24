// Package events provides an event system for worker pool lifecycle notifications.
package events

import (
	"fmt"
	"time"

	"workpool/internal/worker"
)

// EventType represents the type of event
type EventType string

const (
	// EventWorkerStarted is emitted when a worker goroutine begins its loop
	EventWorkerStarted EventType = "worker_started"
	// EventWorkerExited is emitted when a worker goroutine terminates
	EventWorkerExited EventType = "worker_exited"
	// EventJobFault is emitted when a job panics
	EventJobFault EventType = "job_fault"
	// EventPoolClosed is emitted after every worker of a pool has exited
	EventPoolClosed EventType = "pool_closed"
)

// Event represents a pool lifecycle event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	WorkerID  int       `json:"worker_id"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Error   string `json:"error,omitempty"`
	Workers int    `json:"workers,omitempty"`
}

// NewWorkerStartedEvent creates a worker started event
func NewWorkerStartedEvent(workerID int) Event {
	return Event{
		Type:      EventWorkerStarted,
		Timestamp: time.Now(),
		WorkerID:  workerID,
	}
}

// NewWorkerExitedEvent creates a worker exited event
func NewWorkerExitedEvent(workerID int) Event {
	return Event{
		Type:      EventWorkerExited,
		Timestamp: time.Now(),
		WorkerID:  workerID,
	}
}

// NewJobFaultEvent creates a job fault event
func NewJobFaultEvent(workerID int, fault any) Event {
	return Event{
		Type:      EventJobFault,
		Timestamp: time.Now(),
		WorkerID:  workerID,
		Data: EventData{
			Error: fmt.Sprint(fault),
		},
	}
}

// NewPoolClosedEvent creates a pool closed event
func NewPoolClosedEvent(workers int) Event {
	return Event{
		Type:      EventPoolClosed,
		Timestamp: time.Now(),
		WorkerID:  -1,
		Data: EventData{
			Workers: workers,
		},
	}
}

// Hooks returns pool hooks that publish worker lifecycle events on bus
func Hooks(bus *Bus) worker.Hooks {
	return worker.Hooks{
		OnStart: func(id int) {
			bus.Publish(NewWorkerStartedEvent(id))
		},
		OnFault: func(fault *worker.JobPanic) {
			bus.Publish(NewJobFaultEvent(fault.WorkerID, fault.Value))
		},
		OnExit: func(id int) {
			bus.Publish(NewWorkerExitedEvent(id))
		},
	}
}
