// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/farm/api/pools"
	"github.com/vechain/farm/api/registry"
	"github.com/vechain/farm/api/utils"
	"github.com/vechain/farm/builtin"
	"github.com/vechain/farm/clock"
	"github.com/vechain/farm/farm"
	"github.com/vechain/farm/genesis"
	"github.com/vechain/farm/state"
)

const launchTime = 1_000_000

type testServer struct {
	*httptest.Server
	clock  *clock.Manual
	result *genesis.Result
}

func newTestServer(t *testing.T, devMode bool) *testServer {
	clk := clock.NewManual(launchTime)
	f, err := builtin.New(state.New(nil), clk)
	require.NoError(t, err)
	res, err := genesis.NewDevnet(launchTime).Build(f)
	require.NoError(t, err)

	enabled := &atomic.Bool{}
	enabled.Store(true)
	handler := New(utils.NewSerializer(f), Options{
		AllowedOrigins:  "*",
		DevMode:         devMode,
		EnableMetrics:   true,
		EnableReqLogger: enabled,
	})
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return &testServer{ts, clk, res}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) *T {
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return &v
}

func TestGetRegistry(t *testing.T) {
	ts := newTestServer(t, false)

	code, data := ts.do(t, http.MethodGet, "/registry", "")
	require.Equal(t, http.StatusOK, code, string(data))

	v := decode[registry.Summary](t, data)
	assert.Equal(t, genesis.DevAccounts()[0], *v.Owner)
	assert.Equal(t, ts.result.Tokens["RWD"], *v.RewardToken)
	assert.Equal(t, "10000000000000000000", (*big.Int)(v.EmissionRate).String())
	assert.Equal(t, uint64(1000), v.TotalWeight)
	assert.False(t, v.ShouldUpdateRatio)
	require.Len(t, v.Pools, 2)
	assert.Equal(t, ts.result.Pools["RWD"], v.Pools[0].Pool)
	assert.Equal(t, uint64(800), v.Pools[1].Weight)
}

func TestDecay(t *testing.T) {
	ts := newTestServer(t, false)

	code, _ := ts.do(t, http.MethodPost, "/registry/decay", "")
	assert.Equal(t, http.StatusBadRequest, code, "too frequent")

	ts.clock.Advance(14 * 24 * 3600)
	code, data := ts.do(t, http.MethodPost, "/registry/decay", "")
	require.Equal(t, http.StatusOK, code, string(data))

	v := decode[registry.Decay](t, data)
	assert.Equal(t, "9900000000000000000", (*big.Int)(v.EmissionRate).String())
	assert.Equal(t, ts.clock.Now(), v.LastRatioUpdate)
}

func TestGetPool(t *testing.T) {
	ts := newTestServer(t, false)
	lp := ts.result.Tokens["LP"]

	code, data := ts.do(t, http.MethodGet, "/pools/"+lp.String(), "")
	require.Equal(t, http.StatusOK, code, string(data))
	v := decode[pools.Pool](t, data)
	assert.Equal(t, ts.result.Pools["LP"], *v.Address)
	assert.Equal(t, uint64(800), v.Weight)
	assert.True(t, v.CrossCompound)
	assert.Equal(t, "0", (*big.Int)(v.UsersLockingWeight).String())

	code, _ = ts.do(t, http.MethodGet, "/pools/"+farm.Address{0x1}.String(), "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(t, http.MethodGet, "/pools/0x123", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWritesNeedDevMode(t *testing.T) {
	ts := newTestServer(t, false)
	lp := ts.result.Tokens["LP"]

	code, _ := ts.do(t, http.MethodPost, "/pools/"+lp.String()+"/stake", `{}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStakeFlow(t *testing.T) {
	ts := newTestServer(t, true)
	lp := ts.result.Tokens["LP"].String()
	accs := genesis.DevAccounts()
	alice, vault := accs[1].String(), accs[len(accs)-1].String()
	year := uint64(365 * 24 * 3600)

	body := `{"caller":"` + alice + `","amount":"1000","lockUntil":` + big.NewInt(int64(launchTime+year)).String() + `}`
	code, data := ts.do(t, http.MethodPost, "/pools/"+lp+"/stake", body)
	require.Equal(t, http.StatusOK, code, string(data))
	staker := decode[pools.Staker](t, data)
	require.Len(t, staker.Deposits, 1)
	assert.Equal(t, "2000000000", (*big.Int)(staker.Deposits[0].Weight).String())

	// locked
	code, _ = ts.do(t, http.MethodPost, "/pools/"+lp+"/unstake", `{"caller":"`+alice+`","depositId":0,"amount":"1000"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	// only the vault pushes vault rewards
	code, _ = ts.do(t, http.MethodPost, "/pools/"+lp+"/vault-rewards", `{"caller":"`+alice+`","amount":"10"}`)
	assert.Equal(t, http.StatusForbidden, code)

	// the vault has no allowance for the pool in the dev genesis
	code, _ = ts.do(t, http.MethodPost, "/pools/"+lp+"/vault-rewards", `{"caller":"`+vault+`","amount":"10"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	ts.clock.Advance(10)
	code, data = ts.do(t, http.MethodGet, "/pools/"+lp+"/stakers/"+alice, "")
	require.Equal(t, http.StatusOK, code, string(data))
	staker = decode[pools.Staker](t, data)
	assert.Positive(t, (*big.Int)(staker.PendingYieldRewards).Sign())

	// cross-compounded into the reward pool
	code, data = ts.do(t, http.MethodPost, "/pools/"+lp+"/rewards", `{"caller":"`+alice+`"}`)
	require.Equal(t, http.StatusOK, code, string(data))
	staker = decode[pools.Staker](t, data)
	assert.Equal(t, "0", (*big.Int)(staker.PendingYieldRewards).String())

	code, data = ts.do(t, http.MethodGet, "/pools/"+ts.result.Tokens["RWD"].String()+"/stakers/"+alice, "")
	require.Equal(t, http.StatusOK, code, string(data))
	staker = decode[pools.Staker](t, data)
	require.Len(t, staker.Deposits, 1)
	assert.True(t, staker.Deposits[0].IsYield)

	code, _ = ts.do(t, http.MethodPost, "/pools/"+lp+"/rewards", `{"useEscrow":true}`)
	assert.Equal(t, http.StatusBadRequest, code, "caller required")
	code, _ = ts.do(t, http.MethodPost, "/pools/"+lp+"/rewards", `{"caller":"`+alice+`","unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, code, "strict body")
}
