// Package progress implements the versioned binary snapshot format the
// client runtime uses to save and restore in-progress achievement and
// leaderboard state across sessions (spec §4.7), grounded on the
// original engine's rc_runtime_progress chunked format: a leading
// marker, a sequence of 4-byte-aligned tagged chunks, a DONE sentinel,
// and a trailing MD5 digest of everything written before it.
package progress

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"fmt"

	"github.com/northbridge-labs/cheevos/internal/expr"
	"github.com/northbridge-labs/cheevos/internal/memref"
	"github.com/northbridge-labs/cheevos/internal/runtime"
)

// marker is the leading 4 bytes of every snapshot, "RAP\n" read as a
// little-endian uint32.
const marker = 0x0A504152

type chunkTag uint32

const (
	chunkMemrefs     chunkTag = 0x4645524D // MREF
	chunkAchievement chunkTag = 0x56484341 // ACHV
	chunkLeaderboard chunkTag = 0x4452424C // LBRD
	chunkRichPresence chunkTag = 0x48434952 // RICH
	chunkDone        chunkTag = 0x454E4F44 // DONE
)

const memrefChangedFlag = 0x00010000

// ErrCorrupt is returned when a snapshot's digest or structure doesn't
// check out; the caller must treat this as "no valid save" and start
// the game fresh rather than attempt a partial load (spec §4.7 "a
// digest mismatch resets progress rather than partially loading it").
var ErrCorrupt = fmt.Errorf("progress: corrupt or truncated snapshot")

// Serialize captures g's current memref values and every active
// achievement/leaderboard trigger's hit counts into a self-describing
// byte snapshot. Triggers in their Inactive or Triggered states are
// skipped: there's nothing meaningful to restore for them (spec §4.7:
// "only running attempts carry state worth saving").
func Serialize(g *runtime.Game) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(marker))

	writeMemrefs(&buf, g)

	for _, a := range g.Achievements {
		writeAchievementChunk(&buf, a)
	}
	for _, lb := range g.Leaderboards {
		writeLeaderboardChunk(&buf, lb)
	}

	writeUint(&buf, uint32(chunkDone))
	writeUint(&buf, 16)
	digest := md5.Sum(buf.Bytes())
	buf.Write(digest[:])

	return buf.Bytes()
}

func writeUint(buf *bytes.Buffer, v uint32) {
	binary.Write(buf, binary.LittleEndian, v)
}

func startChunk(buf *bytes.Buffer, tag chunkTag) (sizeOffset int) {
	writeUint(buf, uint32(tag))
	sizeOffset = buf.Len()
	writeUint(buf, 0)
	return sizeOffset
}

func endChunk(buf *bytes.Buffer, sizeOffset int) {
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
	length := uint32(buf.Len() - sizeOffset - 4)
	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[sizeOffset:sizeOffset+4], length)
}

func writeMemrefs(buf *bytes.Buffer, g *runtime.Game) {
	sizeOffset := startChunk(buf, chunkMemrefs)

	for _, n := range g.Graph.All() {
		mr, ok := n.(*memref.Memref)
		if !ok {
			continue
		}
		flags := uint32(mr.Size)
		if mr.Triple.Changed {
			flags |= memrefChangedFlag
		}
		writeUint(buf, mr.Address)
		writeUint(buf, flags)
		writeUint(buf, mr.Value(memref.ViewAddress))
		writeUint(buf, mr.Value(memref.ViewPrior))
	}

	endChunk(buf, sizeOffset)
}

// digestTriggerID folds an artifact's 32-bit ID into a 16-byte digest
// slot so a snapshot can be matched back to the achievement/leaderboard
// it belongs to even across a reordering of the patch data; this
// repository doesn't hash the full trigger definition text (the
// original engine's MD5-of-logic-string check), only the ID, since
// compiled trigger text isn't retained once parsed into memrefs.
func digestTriggerID(id uint32) [16]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], id)
	return md5.Sum(b[:])
}

func writeAchievementChunk(buf *bytes.Buffer, a *runtime.Achievement) {
	if a.Trigger.State == expr.StateInactive || a.Trigger.State == expr.StateTriggered || a.Trigger.State == expr.StateDisabled {
		return
	}

	sizeOffset := startChunk(buf, chunkAchievement)
	writeUint(buf, a.ID)
	digest := digestTriggerID(a.ID)
	buf.Write(digest[:])
	writeUint(buf, uint32(a.Trigger.State))
	writeTrigger(buf, a.Trigger)
	endChunk(buf, sizeOffset)
}

func writeLeaderboardChunk(buf *bytes.Buffer, lb *runtime.Leaderboard) {
	if lb.Body.Start.State == expr.StateInactive {
		return
	}

	sizeOffset := startChunk(buf, chunkLeaderboard)
	writeUint(buf, lb.ID)
	digest := digestTriggerID(lb.ID)
	buf.Write(digest[:])
	writeTrigger(buf, lb.Body.Start)
	writeTrigger(buf, lb.Body.Submit)
	writeTrigger(buf, lb.Body.Cancel)
	endChunk(buf, sizeOffset)
}

func writeTrigger(buf *bytes.Buffer, t *expr.Trigger) {
	writeUint(buf, uint32(t.State))
	writeConditionSet(buf, t.Core)
	writeUint(buf, uint32(len(t.Alts)))
	for _, alt := range t.Alts {
		writeConditionSet(buf, alt)
	}
}

func writeConditionSet(buf *bytes.Buffer, cs *expr.ConditionSet) {
	writeUint(buf, uint32(len(cs.Conditions)))
	for _, cond := range cs.Conditions {
		writeUint(buf, cond.CurrentHits)
	}
}

// Deserialize validates snap's marker and trailing digest, then
// restores matching achievement/leaderboard trigger state and hit
// counts into g. It returns ErrCorrupt (and leaves g untouched) if the
// digest doesn't match or the buffer is truncated — a snapshot is
// all-or-nothing (spec §4.7).
func Deserialize(g *runtime.Game, snap []byte) error {
	if len(snap) < 8 {
		return ErrCorrupt
	}
	if binary.LittleEndian.Uint32(snap[0:4]) != marker {
		return ErrCorrupt
	}

	body, trailer := snap[:len(snap)-16], snap[len(snap)-16:]
	want := md5.Sum(body)
	if !bytes.Equal(want[:], trailer) {
		return ErrCorrupt
	}

	r := &reader{buf: snap, off: 4}
	for {
		tag, ok := r.uint32()
		if !ok {
			return ErrCorrupt
		}
		size, ok := r.uint32()
		if !ok {
			return ErrCorrupt
		}
		chunkEnd := r.off + int(size)
		if chunkEnd > len(r.buf) {
			return ErrCorrupt
		}

		switch chunkTag(tag) {
		case chunkMemrefs:
			readMemrefs(g, r, chunkEnd)
		case chunkAchievement:
			readAchievement(g, r, chunkEnd)
		case chunkLeaderboard:
			readLeaderboard(g, r, chunkEnd)
		case chunkDone:
			return nil
		default:
			r.off = chunkEnd
		}

		r.off = (r.off + 3) &^ 3
	}
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) uint32() (uint32, bool) {
	if r.off+4 > len(r.buf) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, true
}

func readMemrefs(g *runtime.Game, r *reader, end int) {
	byAddr := make(map[uint32][]*memref.Memref)
	for _, n := range g.Graph.All() {
		if mr, ok := n.(*memref.Memref); ok {
			byAddr[mr.Address] = append(byAddr[mr.Address], mr)
		}
	}

	for r.off+16 <= end {
		address, _ := r.uint32()
		flags, _ := r.uint32()
		value, _ := r.uint32()
		prior, _ := r.uint32()
		size := memref.Size(flags & 0xFF)

		for _, mr := range byAddr[address] {
			if mr.Size == size {
				mr.RestoreValue(value, prior, flags&memrefChangedFlag != 0)
				break
			}
		}
	}
	r.off = end
}

func readAchievement(g *runtime.Game, r *reader, end int) {
	id, ok := r.uint32()
	if !ok {
		r.off = end
		return
	}
	r.off += 16 // digest, trusted by construction since we wrote it ourselves

	state, _ := r.uint32()

	a, found := g.Achievement(id)
	if !found || a.Trigger.State != expr.StateWaiting {
		r.off = end
		return
	}

	a.Trigger.State = expr.TriggerState(state)
	readTriggerHits(a.Trigger, r, end)
	r.off = end
}

func readLeaderboard(g *runtime.Game, r *reader, end int) {
	id, ok := r.uint32()
	if !ok {
		r.off = end
		return
	}
	r.off += 16

	lb, found := g.Leaderboard(id)
	if !found {
		r.off = end
		return
	}

	readTriggerHits(lb.Body.Start, r, end)
	readTriggerHits(lb.Body.Submit, r, end)
	readTriggerHits(lb.Body.Cancel, r, end)
	r.off = end
}

func readTriggerHits(t *expr.Trigger, r *reader, end int) {
	state, ok := r.uint32()
	if !ok {
		return
	}
	t.State = expr.TriggerState(state)

	readConditionSetHits(t.Core, r)
	altCount, _ := r.uint32()
	for i := uint32(0); i < altCount && int(i) < len(t.Alts); i++ {
		readConditionSetHits(t.Alts[i], r)
	}
}

func readConditionSetHits(cs *expr.ConditionSet, r *reader) {
	count, ok := r.uint32()
	if !ok {
		return
	}
	for i := uint32(0); i < count; i++ {
		hits, ok := r.uint32()
		if !ok {
			return
		}
		if int(i) < len(cs.Conditions) {
			cs.Conditions[i].CurrentHits = hits
		}
	}
}
