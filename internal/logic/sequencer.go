package logic

import (
	"sort"
	"time"
)

// phase is a scheduled second half of a staged sequence. It carries only
// identity and due time; everything it acts on is re-read when it fires.
type phase struct {
	seq Sequence
	gen uint64
	due time.Time
}

// sequencer tracks in-flight phases. The newest sequence of each kind
// supersedes older ones: a stale phase is discarded when it fires.
type sequencer struct {
	phases          []phase
	gens            map[Sequence]uint64
	compressorOffAt time.Time
}

func (s *sequencer) schedule(seq Sequence, due time.Time) {
	if s.gens == nil {
		s.gens = make(map[Sequence]uint64)
	}
	s.gens[seq]++
	s.phases = append(s.phases, phase{seq: seq, gen: s.gens[seq], due: due})
	sort.SliceStable(s.phases, func(i, j int) bool {
		return s.phases[i].due.Before(s.phases[j].due)
	})
}

// pending reports whether the current sequence of this kind has not fired yet.
func (s *sequencer) pending(seq Sequence) bool {
	for _, p := range s.phases {
		if p.seq == seq && p.gen == s.gens[seq] {
			return true
		}
	}
	return false
}

func (s *sequencer) current(p phase) bool {
	return p.gen == s.gens[p.seq]
}

func (s *sequencer) popDue(now time.Time) (phase, bool) {
	if len(s.phases) == 0 || s.phases[0].due.After(now) {
		return phase{}, false
	}
	p := s.phases[0]
	s.phases = s.phases[1:]
	return p, true
}

func (s *sequencer) nextDue() (time.Time, bool) {
	if len(s.phases) == 0 {
		return time.Time{}, false
	}
	return s.phases[0].due, true
}

// startup runs phase 1 of the cool-on sequence: fan now, compressor after
// StartupDelay. A no-op while a startup is in flight and the fan is still on.
func (c *Controller) startup(now time.Time) {
	if c.seq.pending(SequenceStartup) && c.act.FanObserved {
		return
	}
	c.write(ActuatorFan, true, now)
	c.seq.schedule(SequenceStartup, now.Add(c.cfg.StartupDelay))
	c.report(now, "startup")
}

// shutdown runs phase 1 of the cool-off sequence: compressor now, fan after
// DefrostDelay. A no-op while a shutdown is in flight and the compressor is
// still off.
func (c *Controller) shutdown(now time.Time) {
	if c.seq.pending(SequenceShutdown) && !c.act.CompressorObserved {
		return
	}
	c.write(ActuatorCompressor, false, now)
	c.seq.schedule(SequenceShutdown, now.Add(c.cfg.DefrostDelay))
	c.report(now, "shutdown")
}

func (c *Controller) fire(p phase, now time.Time) {
	if !c.seq.current(p) {
		return
	}
	c.checkup(now)

	switch p.seq {
	case SequenceStartup:
		if !c.act.FanObserved {
			c.abort(SequenceStartup, "fan observed off", now)
			return
		}
		if !c.enabled || c.duty != DutyCooling {
			c.abort(SequenceStartup, "no longer cooling", now)
			return
		}
		if c.cfg.CompressorMinOff > 0 && !c.seq.compressorOffAt.IsZero() &&
			now.Sub(c.seq.compressorOffAt) < c.cfg.CompressorMinOff {
			c.abort(SequenceStartup, "compressor minimum off-time", now)
			return
		}
		c.write(ActuatorCompressor, true, now)
		c.report(now, "startup complete")

	case SequenceShutdown:
		if c.act.CompressorObserved {
			c.abort(SequenceShutdown, "compressor observed on", now)
			return
		}
		if !c.write(ActuatorFan, false, now) {
			c.abort(SequenceShutdown, "fan write failed", now)
			return
		}
		if c.duty == DutyDefrosting {
			c.transition(DutyIdle, now)
		}
		c.report(now, "shutdown complete")
	}
}

func (c *Controller) abort(seq Sequence, reason string, now time.Time) {
	switch seq {
	case SequenceStartup:
		c.counts.StartupsAborted++
	case SequenceShutdown:
		c.counts.ShutdownsAborted++
	}
	c.emit(Event{Timestamp: now, Type: EventAborted, Sequence: seq, Reason: reason})
}
