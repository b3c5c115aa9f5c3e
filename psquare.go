package reactor

import "math"

// quantileEstimator streams one percentile via the P² algorithm (Jain
// & Chlamtac, 1985): O(1) per update and O(1) read, with no retained
// observation history. Not safe for concurrent use; latencyQuantiles
// serializes access with its own mutex.
type quantileEstimator struct {
	p  float64
	q  [5]float64
	n  [5]int
	np [5]float64
	dn [5]float64

	initialized bool
	count       int
	initBuffer  [5]float64
}

// newQuantileEstimator returns an estimator for percentile p (0.0-1.0,
// e.g. 0.99 for P99).
func newQuantileEstimator(p float64) *quantileEstimator {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return &quantileEstimator{
		p:  p,
		dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

// Update folds x into the estimate.
func (e *quantileEstimator) Update(x float64) {
	e.count++

	if e.count <= 5 {
		e.initBuffer[e.count-1] = x
		if e.count == 5 {
			e.initialize()
		}
		return
	}

	var k int
	if x < e.q[0] {
		e.q[0] = x
		k = 0
	} else if x >= e.q[4] {
		e.q[4] = x
		k = 3
	} else {
		for k = 0; k < 4; k++ {
			if e.q[k] <= x && x < e.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		e.n[i]++
	}
	for i := 0; i < 5; i++ {
		e.np[i] += e.dn[i]
	}

	for i := 1; i < 4; i++ {
		d := e.np[i] - float64(e.n[i])
		if (d >= 1 && e.n[i+1]-e.n[i] > 1) || (d <= -1 && e.n[i-1]-e.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}

			qPrime := e.parabolic(i, sign)
			if e.q[i-1] < qPrime && qPrime < e.q[i+1] {
				e.q[i] = qPrime
			} else {
				e.q[i] = e.linear(i, sign)
			}
			e.n[i] += sign
		}
	}
}

// initialize seeds the five markers from the first five observations.
func (e *quantileEstimator) initialize() {
	for i := 1; i < 5; i++ {
		key := e.initBuffer[i]
		j := i - 1
		for j >= 0 && e.initBuffer[j] > key {
			e.initBuffer[j+1] = e.initBuffer[j]
			j--
		}
		e.initBuffer[j+1] = key
	}

	for i := 0; i < 5; i++ {
		e.q[i] = e.initBuffer[i]
		e.n[i] = i
	}
	e.np = [5]float64{0, 2 * e.p, 4 * e.p, 2 + 2*e.p, 4}
	e.initialized = true
}

func (e *quantileEstimator) parabolic(i, d int) float64 {
	df := float64(d)
	ni := float64(e.n[i])
	niPrev := float64(e.n[i-1])
	niNext := float64(e.n[i+1])

	term1 := df / (niNext - niPrev)
	term2 := (ni - niPrev + df) * (e.q[i+1] - e.q[i]) / (niNext - ni)
	term3 := (niNext - ni - df) * (e.q[i] - e.q[i-1]) / (ni - niPrev)
	return e.q[i] + term1*(term2+term3)
}

func (e *quantileEstimator) linear(i, d int) float64 {
	if d == 1 {
		return e.q[i] + (e.q[i+1]-e.q[i])/float64(e.n[i+1]-e.n[i])
	}
	return e.q[i] - (e.q[i]-e.q[i-1])/float64(e.n[i]-e.n[i-1])
}

// Quantile returns the current estimate, falling back to a sort over
// the buffered observations until five have been seen.
func (e *quantileEstimator) Quantile() float64 {
	if e.count == 0 {
		return 0
	}
	if e.count < 5 {
		sorted := make([]float64, e.count)
		copy(sorted, e.initBuffer[:e.count])
		for i := 1; i < e.count; i++ {
			key := sorted[i]
			j := i - 1
			for j >= 0 && sorted[j] > key {
				sorted[j+1] = sorted[j]
				j--
			}
			sorted[j+1] = key
		}
		index := int(float64(e.count-1) * e.p)
		if index >= e.count {
			index = e.count - 1
		}
		return sorted[index]
	}
	return e.q[2]
}

// latencyQuantiles tracks the P50/P90/P99 of one latency series
// (queue-wait or execution duration) alongside its running mean and
// max, backing SchedulerMetrics.
type latencyQuantiles struct {
	estimators []*quantileEstimator
	sum        float64
	count      int
	max        float64
}

// newLatencyQuantiles builds a tracker for the given percentiles
// (e.g. 0.5, 0.9, 0.99), read back by index via Quantile.
func newLatencyQuantiles(percentiles ...float64) *latencyQuantiles {
	l := &latencyQuantiles{
		estimators: make([]*quantileEstimator, len(percentiles)),
		max:        -math.MaxFloat64,
	}
	for i, p := range percentiles {
		l.estimators[i] = newQuantileEstimator(p)
	}
	return l
}

// Update folds x into every tracked percentile plus the mean and max.
func (l *latencyQuantiles) Update(x float64) {
	l.count++
	l.sum += x
	if x > l.max {
		l.max = x
	}
	for _, est := range l.estimators {
		est.Update(x)
	}
}

// Quantile returns the i-th percentile passed to newLatencyQuantiles.
func (l *latencyQuantiles) Quantile(i int) float64 {
	if i < 0 || i >= len(l.estimators) {
		return 0
	}
	return l.estimators[i].Quantile()
}

// Max returns the largest observation seen.
func (l *latencyQuantiles) Max() float64 {
	if l.count == 0 {
		return 0
	}
	return l.max
}

// Mean returns the arithmetic mean of every observation seen.
func (l *latencyQuantiles) Mean() float64 {
	if l.count == 0 {
		return 0
	}
	return l.sum / float64(l.count)
}
