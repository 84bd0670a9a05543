package stream

import (
	"testing"
	"time"
)

func testVAD() *VAD {
	return NewVAD(VADConfig{
		EnergyThreshold: 500,
		SpeechMinDur:    20 * time.Millisecond,
		SilenceMinDur:   40 * time.Millisecond,
		SampleRate:      16000,
	})
}

func TestVADDetectsSpeechRun(t *testing.T) {
	v := testVAD()

	// 10ms of speech is below the minimum run.
	if ev := v.ProcessFrame(loudFrame(160)); ev != VADNone {
		t.Fatalf("first loud frame event = %d, want none", ev)
	}
	// Another 10ms crosses it.
	if ev := v.ProcessFrame(loudFrame(160)); ev != VADSpeechStart {
		t.Fatalf("second loud frame event = %d, want speech start", ev)
	}
	if !v.IsSpeaking() {
		t.Error("detector not speaking after start")
	}

	// Short silence does not end the run.
	if ev := v.ProcessFrame(silentFrame(160)); ev != VADNone {
		t.Fatalf("short silence event = %d, want none", ev)
	}
	// Long enough silence does.
	for i := 0; i < 4; i++ {
		if ev := v.ProcessFrame(silentFrame(160)); ev == VADSpeechEnd {
			if v.IsSpeaking() {
				t.Error("detector still speaking after end")
			}
			return
		}
	}
	t.Fatal("speech end never reported")
}

func TestVADSilenceOnlyNeverEnds(t *testing.T) {
	v := testVAD()
	for i := 0; i < 100; i++ {
		if ev := v.ProcessFrame(silentFrame(160)); ev != VADNone {
			t.Fatalf("silence-only stream reported event %d", ev)
		}
	}
}

func TestVADInterruptedSpeechRunResets(t *testing.T) {
	v := testVAD()

	// Speech shorter than the minimum run, broken by silence, never
	// starts speaking.
	v.ProcessFrame(loudFrame(160))
	v.ProcessFrame(silentFrame(160))
	v.ProcessFrame(loudFrame(160))
	if v.IsSpeaking() {
		t.Error("broken speech run started speaking")
	}
}

func TestVADReset(t *testing.T) {
	v := testVAD()
	v.ProcessFrame(loudFrame(320))
	v.ProcessFrame(loudFrame(320))
	if !v.IsSpeaking() {
		t.Fatal("setup: not speaking")
	}
	v.Reset()
	if v.IsSpeaking() {
		t.Error("still speaking after reset")
	}
}
