package pricing

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"os"
	"time"

	"tollsim/internal/config"
	"tollsim/internal/traffic"
)

// priceActions are the signed HKD deltas the agent may apply per adjustment.
var priceActions = []float64{-5, -2, -1, 0, 1, 2, 5}

// Bin edges for state discretization.
var (
	congestionBins = []float64{0.0, 0.3, 0.6, 0.8, 1.0}
	revenueBins    = []float64{0, 25000, 50000, 75000, 100000}
	timeBins       = []float64{0, 6, 9, 17, 20, 24}
)

// stateKey is the discretized (congestion, revenue, hour, vehicles) tuple.
type stateKey struct {
	Congestion int
	Revenue    int
	Hour       int
	Vehicles   int
}

// QLearning adjusts the toll with a tabular temporal-difference agent.
// Continuous state is binned into a small key space; actions are fixed price
// deltas; exploration decays geometrically toward a floor.
type QLearning struct {
	LearningRate   float64
	DiscountFactor float64
	Epsilon        float64

	toll  config.TollConfig
	table map[stateKey]map[float64]float64
	rng   *rand.Rand
}

const (
	epsilonFloor = 0.01
	epsilonDecay = 0.995
)

// NewQLearning creates an initialized agent with standard hyperparameters.
func NewQLearning(toll config.TollConfig, src rand.Source) *QLearning {
	return &QLearning{
		LearningRate:   0.1,
		DiscountFactor: 0.95,
		Epsilon:        0.1,
		toll:           toll,
		table:          make(map[stateKey]map[float64]float64),
		rng:            rand.New(src),
	}
}

// digitize returns the bin index of x against ascending bin edges, matching
// the convention that the first edge opens bin 0.
func digitize(x float64, bins []float64) int {
	n := 0
	for _, b := range bins {
		if x >= b {
			n++
		} else {
			break
		}
	}
	return n - 1
}

func (q *QLearning) discretize(state traffic.State) stateKey {
	vehicleBin := state.ActiveVehicles / 500
	if vehicleBin > 4 {
		vehicleBin = 4
	}
	return stateKey{
		Congestion: digitize(avgCongestion(state), congestionBins),
		Revenue:    digitize(state.Revenue, revenueBins),
		Hour:       digitize(float64(state.Hour), timeBins),
		Vehicles:   vehicleBin,
	}
}

// Recommend proposes the current toll shifted by an epsilon-greedy action,
// clamped to the absolute price bounds. An agent without a Q-table (e.g. a
// zero value or a failed load) reports an error so the controller can fall
// back.
func (q *QLearning) Recommend(state traffic.State) (float64, error) {
	if q.table == nil {
		return 0, errors.New("qlearning: model not initialized")
	}
	action := q.selectAction(q.discretize(state))
	price := state.TollPrice + action
	if price < q.toll.MinPrice {
		price = q.toll.MinPrice
	} else if price > q.toll.MaxPrice {
		price = q.toll.MaxPrice
	}
	return price, nil
}

func (q *QLearning) selectAction(key stateKey) float64 {
	if q.rng.Float64() < q.Epsilon {
		return priceActions[q.rng.IntN(len(priceActions))]
	}
	actions, ok := q.table[key]
	if !ok || len(actions) == 0 {
		return 0
	}
	best, bestQ := 0.0, 0.0
	first := true
	for a, v := range actions {
		if first || v > bestQ {
			best, bestQ = a, v
			first = false
		}
	}
	return best
}

// TrainStep applies one Q-learning update from the observed transition and
// decays the exploration rate.
func (q *QLearning) TrainStep(prev traffic.State, appliedPrice float64, next traffic.State) error {
	if q.table == nil {
		return errors.New("qlearning: model not initialized")
	}
	action := nearestAction(appliedPrice - prev.TollPrice)
	reward := q.reward(prev, next, appliedPrice)

	prevKey := q.discretize(prev)
	nextKey := q.discretize(next)

	maxNext := 0.0
	if actions, ok := q.table[nextKey]; ok {
		first := true
		for _, v := range actions {
			if first || v > maxNext {
				maxNext = v
				first = false
			}
		}
	}

	if _, ok := q.table[prevKey]; !ok {
		q.table[prevKey] = make(map[float64]float64)
	}
	current := q.table[prevKey][action]
	q.table[prevKey][action] = current + q.LearningRate*(reward+q.DiscountFactor*maxNext-current)

	q.Epsilon *= epsilonDecay
	if q.Epsilon < epsilonFloor {
		q.Epsilon = epsilonFloor
	}
	return nil
}

// reward scores a transition: revenue improvement (50%), congestion
// reduction (30%), inter-road balance (20%), and a fixed penalty when the
// applied toll sits outside the configured bounds.
func (q *QLearning) reward(prev, next traffic.State, appliedPrice float64) float64 {
	revenueImprovement := (next.Revenue - prev.Revenue) / 1000
	congestionImprovement := (avgCongestion(prev) - avgCongestion(next)) * 100

	balance := 10 - popVariance(congestionValues(next))*100
	if balance < 0 {
		balance = 0
	}

	penalty := 0.0
	if appliedPrice < q.toll.MinPrice || appliedPrice > q.toll.MaxPrice {
		penalty = -10
	}

	return revenueImprovement*0.5 + congestionImprovement*0.3 + balance*0.2 + penalty
}

func nearestAction(delta float64) float64 {
	best := priceActions[0]
	for _, a := range priceActions[1:] {
		if abs(delta-a) < abs(delta-best) {
			best = a
		}
	}
	return best
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func congestionValues(state traffic.State) []float64 {
	vals := make([]float64, 0, len(state.Congestion))
	for _, c := range state.Congestion {
		vals = append(vals, c)
	}
	return vals
}

func avgCongestion(state traffic.State) float64 {
	vals := congestionValues(state)
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// popVariance is the population variance (mean squared deviation).
func popVariance(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(vals))
}

// savedModel is the JSON persistence form of the agent.
type savedModel struct {
	LearningRate   float64      `json:"learning_rate"`
	DiscountFactor float64      `json:"discount_factor"`
	Epsilon        float64      `json:"epsilon"`
	Entries        []savedEntry `json:"q_table"`
	SavedAt        time.Time    `json:"saved_at"`
}

type savedEntry struct {
	State  [4]int  `json:"state"`
	Action float64 `json:"action"`
	Q      float64 `json:"q"`
}

// SaveModel writes the Q-table and hyperparameters to a JSON file.
func (q *QLearning) SaveModel(path string) error {
	m := savedModel{
		LearningRate:   q.LearningRate,
		DiscountFactor: q.DiscountFactor,
		Epsilon:        q.Epsilon,
		SavedAt:        time.Now().UTC(),
	}
	for key, actions := range q.table {
		for a, v := range actions {
			m.Entries = append(m.Entries, savedEntry{
				State:  [4]int{key.Congestion, key.Revenue, key.Hour, key.Vehicles},
				Action: a,
				Q:      v,
			})
		}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadModel restores the Q-table and hyperparameters from a JSON file.
func (q *QLearning) LoadModel(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var m savedModel
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	q.LearningRate = m.LearningRate
	q.DiscountFactor = m.DiscountFactor
	q.Epsilon = m.Epsilon
	q.table = make(map[stateKey]map[float64]float64)
	for _, e := range m.Entries {
		key := stateKey{Congestion: e.State[0], Revenue: e.State[1], Hour: e.State[2], Vehicles: e.State[3]}
		if _, ok := q.table[key]; !ok {
			q.table[key] = make(map[float64]float64)
		}
		q.table[key][e.Action] = e.Q
	}
	return nil
}

// Stats summarizes the learned table.
func (q *QLearning) Stats() (states, stateActions int) {
	states = len(q.table)
	for _, actions := range q.table {
		stateActions += len(actions)
	}
	return states, stateActions
}
