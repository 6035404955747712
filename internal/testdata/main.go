// Package testdata holds chart fixtures shared by tests.
package testdata

import (
	"git.lost.host/meutraa/beatjudge/internal/game"
	"gopkg.in/yaml.v3"
)

// GetChart returns a four panel chart at 60 bpm, so beats are seconds.
func GetChart() (*game.Chart, error) {
	var chart game.Chart
	if err := yaml.Unmarshal([]byte(data), &chart); nil != err {
		return nil, err
	}
	return &chart, nil
}

const data = `
difficulty:
  name: Fixture
  msd: "1"
  nkeys: 4
timing:
  offset: 0
  bpms:
    0: 60
notecount: 3
holdcount: 1
minecount: 1
notes:
  - {panel: 0, beat: 1, kind: tap, denom: 1}
  - {panel: 1, beat: 2, kind: hold, length: 1, denom: 1}
  - {panel: 2, beat: 3, kind: mine, denom: 1}
  - {panel: 3, beat: 4, kind: tap, denom: 1}
`

// SM is a chart file with one dance-single and one dance-double chart
// between a chart of an unsupported mode.
const SM = `#TITLE:Fixture;
#ARTIST:beatjudge;
#OFFSET:-0.100;
#BPMS:0.000=120.000,
4.000=240.000;
#STOPS:2.000=0.500;
#DELAYS:;
#WARPS:6.000=1.000;

//---------------dance-single - ----------------
#NOTES:
     dance-single:
     :
     Easy:
     3:
     0.1,0.1,0.1,0.1,0.1:
1000
0100
0010
0001
,  // measure 2
2000
0000
3M00
000L
;
#NOTES:
     pump-single:
     :
     Hard:
     7:
     0,0,0,0,0:
10000
;
#NOTES:
     dance-double:
     :
     Challenge:
     9:
     0,0,0,0,0:
10000001
00000000
00000000
00000000
,
40000000
00F00000
0000K000
30000000
;
`
