package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"math"
	"math/big"
	"strconv"

	"github.com/zintix-labs/gammalab"
	"github.com/zintix-labs/gammalab/demo/demo_configs"
	"github.com/zintix-labs/gammalab/sdk/core"
	"github.com/zintix-labs/gammalab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	name      string
	id        spec.SID
	worker    int
	runs      int
	states    int
	mode      string
	alpha     float64
	seed      int64
	pprofmode string
}

type sidFlag struct{ p *spec.SID }

func (f sidFlag) String() string { return fmt.Sprint(uint(*f.p)) }
func (f sidFlag) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return err
	}
	*f.p = spec.SID(uint(u))
	return nil
}

func bindVar() {
	// 綁定 Flag 到本地變數的指標 (&)
	flag.Var(sidFlag{&cfg.id}, "scene", "target scene id")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.runs, "runs", 1, "number of independent runs")
	flag.IntVar(&cfg.states, "states", 10000000, "states per run")
	flag.StringVar(&cfg.mode, "mode", "forward", "sampling mode: forward | backward")
	flag.Float64Var(&cfg.alpha, "alpha", -1, "photo-peak fraction for backward mode; <0 uses scene default")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	// given seed illeagel -> default seed
	if cfg.seed < 1 {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			log.Fatal(err)
		}
		cfg.seed = seed.Int64()
	}
}

// 這裡解析並分支要執行的模擬器
func executeSimulator() { // 取得state數
	cfg.valid() // 基本檢查

	lab, err := gammalab.NewAuto(
		core.Default(),
		gammalab.Configs(demo_configs.FS),
	)
	if err != nil {
		log.Fatal(err)
	}
	s, err := lab.NewSimulatorWithSeed(cfg.id, cfg.seed)
	if err != nil {
		log.Fatal(err)
	}
	ent, _ := lab.EntryById(cfg.id)
	cfg.name = ent.Name

	mode := spec.ModeKey(cfg.mode)
	alpha := s.Alpha()
	if cfg.alpha >= 0 {
		alpha = cfg.alpha
	}

	// 至此確保可執行
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)

	if cfg.runs == 1 { // 純取樣引擎模擬
		if cfg.worker == 1 { // 單線程
			p.Printf("%s[SCENE:%s] [MODE:%s] [STATES:%d]%s\n", green, cfg.name, mode, cfg.states, reset)
			st, used, _ := s.Sim(mode, alpha, cfg.states, true)
			st.StdOut(used)
		} else {
			p.Printf("%s[WORKERS:%d] [SCENE:%s] [MODE:%s] [STATES:%d]%s\n", green, cfg.worker, cfg.name, mode, cfg.worker*cfg.states, reset)
			st, used, _ := s.SimMP(mode, alpha, cfg.states, cfg.worker, true) // 併發
			st.StdOut(used)
		}
	} else { // 模擬多個獨立子批次（批次間統計）
		p.Printf("%s[WORKERS:%d] [SCENE:%s] [RUNS:%d MODE:%s STATES:%d]%s\n", green, cfg.worker, cfg.name, cfg.runs, mode, cfg.states, reset)
		st, est, used, _ := s.SimRuns(cfg.worker, cfg.runs, cfg.states, mode, alpha, true)
		st.StdOut(used)
		est.Out()
	}
}

func (cfg *config) valid() {
	p := message.NewPrinter(language.English)

	// 工作協程檢查(併發數)
	if cfg.worker < 1 {
		log.Fatal("value err : workers must > 0")
	}

	// 子批次檢查
	if cfg.runs < 1 {
		log.Fatal("value err : runs must > 0")
	}
	// 子批次太多 resize
	if cfg.runs > 100000 {
		p.Printf("too much runs: %d resized to 100k runs\n", cfg.runs)
		cfg.runs = 100000
	}

	// 取樣模式檢查
	if !spec.ModeKey(cfg.mode).Known() {
		log.Fatal("value err : mode must be forward or backward")
	}

	// alpha 檢查（>1 必為非法；<0 表示沿用場景預設）
	if cfg.alpha > 1 {
		log.Fatal("value err : alpha must be in [0,1]")
	}

	// 狀態數檢查
	if cfg.states < 1 {
		log.Fatal("value err : states must > 0")
	}

	// 多子批次時，每批最高不超過15000狀態(無意義)
	// 批次間估計的目的是方差，不是吞吐；批內太大反而看不出批間散佈，直接模擬長單批即可
	if cfg.runs > 1 && cfg.states > 15000 {
		p.Printf("too much states for each run : %d resized to 15k states per run\n", cfg.states)
		cfg.states = 15000
	}
}
