// File: sp/survey_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sp

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-sp/api"
)

func surveyPair(t *testing.T, url string, respondents int) (Socket, []Socket) {
	t.Helper()
	sv, err := Open(api.Surveyor0)
	if err != nil {
		t.Fatalf("open surveyor: %v", err)
	}
	t.Cleanup(func() { sv.Close() })

	joined := make(chan struct{}, respondents)
	sv.SetPipeHook(func(p Pipe, ev api.PipeEvent) {
		if ev == api.PipeAdded {
			joined <- struct{}{}
		}
	})
	if err := sv.Listen(url); err != nil {
		t.Fatalf("listen: %v", err)
	}

	rs := make([]Socket, respondents)
	for i := range rs {
		r, err := Open(api.Respondent0)
		if err != nil {
			t.Fatalf("open respondent %d: %v", i, err)
		}
		t.Cleanup(func() { r.Close() })
		if _, err := r.DialFlags(url, api.FlagSynch); err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		rs[i] = r
	}
	for i := 0; i < respondents; i++ {
		select {
		case <-joined:
		case <-time.After(2 * time.Second):
			t.Fatalf("respondent %d never attached", i)
		}
	}
	return sv, rs
}

func TestSurveyGathersAllAnswers(t *testing.T) {
	sv, rs := surveyPair(t, "inproc://survey-gather", 3)
	sv.SetOption(api.OptSurveyTime, 2*time.Second)

	var wg sync.WaitGroup
	for i, r := range rs {
		wg.Add(1)
		go func(i int, r Socket) {
			defer wg.Done()
			r.SetOption(api.OptRecvTimeout, 2*time.Second)
			if _, err := r.Recv(0); err != nil {
				t.Errorf("respondent %d recv: %v", i, err)
				return
			}
			if err := r.Send([]byte(fmt.Sprintf("voter-%d", i)), 0); err != nil {
				t.Errorf("respondent %d send: %v", i, err)
			}
		}(i, r)
	}

	if err := sv.Send([]byte("roll call"), 0); err != nil {
		t.Fatalf("survey send: %v", err)
	}
	sv.SetOption(api.OptRecvTimeout, 2*time.Second)
	votes := make(map[string]bool)
	for i := 0; i < len(rs); i++ {
		b, err := sv.Recv(0)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		votes[string(b)] = true
	}
	if len(votes) != len(rs) {
		t.Fatalf("distinct answers = %d, want %d", len(votes), len(rs))
	}
	wg.Wait()
}

func TestSurveyDeadlineExpires(t *testing.T) {
	sv, _ := surveyPair(t, "inproc://survey-deadline", 1)
	sv.SetOption(api.OptSurveyTime, 50*time.Millisecond)

	if err := sv.Send([]byte("anyone?"), 0); err != nil {
		t.Fatalf("survey send: %v", err)
	}
	// The lone respondent never answers; the deadline fires instead.
	sv.SetOption(api.OptRecvTimeout, 2*time.Second)
	if _, err := sv.Recv(0); err != api.ErrTimedOut {
		t.Fatalf("recv after deadline = %v", err)
	}
	// The survey is over; a further recv has nothing to wait for.
	if _, err := sv.Recv(0); err != api.ErrState {
		t.Fatalf("recv with no survey = %v", err)
	}
}

func TestSurveyRecvBeforeSend(t *testing.T) {
	sv, err := Open(api.Surveyor0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { sv.Close() })
	if _, err := sv.Recv(0); err != api.ErrState {
		t.Fatalf("recv before any survey = %v", err)
	}
}

func TestRespondentSendBeforeRecv(t *testing.T) {
	r, err := Open(api.Respondent0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	if err := r.Send([]byte("unsolicited"), 0); err != api.ErrState {
		t.Fatalf("send with no survey pending = %v", err)
	}
}

func TestNewSurveySupersedesOld(t *testing.T) {
	sv, rs := surveyPair(t, "inproc://survey-supersede", 1)
	sv.SetOption(api.OptSurveyTime, 5*time.Second)
	r := rs[0]
	r.SetOption(api.OptRecvTimeout, 2*time.Second)

	if err := sv.Send([]byte("first"), 0); err != nil {
		t.Fatalf("first survey: %v", err)
	}
	if _, err := r.Recv(0); err != nil {
		t.Fatalf("respondent recv first: %v", err)
	}
	if err := sv.Send([]byte("second"), 0); err != nil {
		t.Fatalf("second survey: %v", err)
	}
	q, err := r.Recv(0)
	if err != nil {
		t.Fatalf("respondent recv second: %v", err)
	}
	if string(q) != "second" {
		t.Fatalf("respondent saw %q", q)
	}
	if err := r.Send([]byte("answer"), 0); err != nil {
		t.Fatalf("respondent send: %v", err)
	}
	sv.SetOption(api.OptRecvTimeout, 2*time.Second)
	b, err := sv.Recv(0)
	if err != nil {
		t.Fatalf("surveyor recv: %v", err)
	}
	if string(b) != "answer" {
		t.Fatalf("answer = %q", b)
	}
}
