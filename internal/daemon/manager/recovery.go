package manager

import (
	"github.com/grovetools/claude-sessions/pkg/models"
	"github.com/grovetools/claude-sessions/pkg/process"
	"github.com/sirupsen/logrus"
)

// Classify decides what became of a persisted session whose process the
// daemon no longer owns. It never yields StatusRunning.
//
// A recorded pid that the probe reports alive may belong to an unrelated
// process after pid reuse, so it is reported as orphaned rather than
// reattached.
func Classify(pid *int, probe process.Probe) models.Status {
	if pid == nil {
		return models.StatusStale
	}
	if !probe(*pid) {
		return models.StatusCrashed
	}
	return models.StatusOrphaned
}

// RecoveryReport counts the classifications made by RecoverSessions.
type RecoveryReport struct {
	Stale    int
	Crashed  int
	Orphaned int
}

// Total returns the number of recovered sessions.
func (r RecoveryReport) Total() int {
	return r.Stale + r.Crashed + r.Orphaned
}

// RecoverSessions loads the persisted state, classifies every record and
// registers it as metadata only. It must run once, before serving requests.
func (m *Manager) RecoverSessions() RecoveryReport {
	state := m.store.LoadState()

	var report RecoveryReport
	m.sessionsMu.Lock()
	for id, rec := range state {
		if _, exists := m.sessions[id]; exists {
			continue
		}
		status := Classify(rec.PID, m.probe)
		switch status {
		case models.StatusStale:
			report.Stale++
		case models.StatusCrashed:
			report.Crashed++
		case models.StatusOrphaned:
			report.Orphaned++
		}

		session := rec.Session()
		session.ID = id
		m.sessions[id] = &entry{session: session, status: status, pid: rec.PID}

		fields := logrus.Fields{"session_id": id.String(), "status": status}
		if rec.PID != nil {
			fields["pid"] = *rec.PID
		}
		m.logger.WithFields(fields).Debug("Recovered session")
	}
	m.sessionsMu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"stale":    report.Stale,
		"crashed":  report.Crashed,
		"orphaned": report.Orphaned,
	}).Info("Session recovery complete")

	m.save()
	return report
}
