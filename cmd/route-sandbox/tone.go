/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// chime is a decaying sine, played when the marker passes a waypoint.
type chime struct {
	freq float64
	pos  int
	n    int
	rate beep.SampleRate
}

func newChime(freq float64, d time.Duration, rate beep.SampleRate) *chime {
	return &chime{freq: freq, n: rate.N(d), rate: rate}
}

func (c *chime) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		if c.pos >= c.n {
			return i, i > 0
		}
		t := float64(c.pos) / float64(c.rate)
		env := 0.25 * math.Exp(-6*float64(c.pos)/float64(c.n))
		v := env * math.Sin(2*math.Pi*c.freq*t)
		samples[i][0], samples[i][1] = v, v
		c.pos++
	}
	return len(samples), true
}

func (c *chime) Err() error { return nil }

// audio plays chimes through a shared mixer. A failed speaker init leaves
// it silent.
type audio struct {
	mu    sync.Mutex
	mixer *beep.Mixer
	ok    bool
}

func newAudio() (*audio, error) {
	a := &audio{mixer: &beep.Mixer{}}
	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		return a, err
	}
	speaker.Play(a.mixer)
	a.ok = true
	return a, nil
}

// waypoint plays a short tone; the pitch rises with the waypoint index.
func (a *audio) waypoint(i int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ok {
		return
	}
	freq := 660 * math.Pow(2, float64(i%5)/12)
	speaker.Lock()
	a.mixer.Add(newChime(freq, 180*time.Millisecond, sampleRate))
	speaker.Unlock()
}

func (a *audio) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ok {
		return
	}
	speaker.Lock()
	a.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	a.ok = false
}
