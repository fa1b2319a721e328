package main

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/models"
	"github.com/ahfrd/grpc-stream-client-side/src/transport"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// streamServiceDesc mirrors the descriptor the client dials. Registered by
// hand because the feed speaks the JSON codec instead of generated protobuf.
var streamServiceDesc = grpc.ServiceDesc{
	ServiceName: "marketdata.StockStream",
	HandlerType: (*interface{})(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "marketdata",
}

// -----------------------------------------------------------------------------

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(*feedService).Subscribe(stream)
}

// -----------------------------------------------------------------------------

// tickerState carries the evolving intraday numbers for one listed ticker.
type tickerState struct {
	Code   string
	Name   string
	Open   float64
	Last   float64
	Volume int64
	Value  float64
	Freq   int64
}

// feedService streams synthetic IDX quote batches to subscribers.
type feedService struct {
	interval  time.Duration
	maxFrames int
	flakeRate float64
	logger    *logger.Logger

	mu       sync.Mutex
	rng      *rand.Rand
	universe []*tickerState
}

// filterDepth maps a subscription filter to how many of the top tickers it
// covers. The universe is ordered roughly by market cap, so a prefix slice is
// a fair stand-in for real index membership.
var filterDepth = map[string]int{
	models.FilterIDX30:     12,
	models.FilterLQ45:      20,
	models.FilterIDX80:     30,
	models.FilterKompas100: 36,
}

// -----------------------------------------------------------------------------

func newFeedService(interval time.Duration, maxFrames int, flakeRate float64, appLogger *logger.Logger) *feedService {
	svc := &feedService{
		interval:  interval,
		maxFrames: maxFrames,
		flakeRate: flakeRate,
		logger:    appLogger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	svc.universe = seedUniverse()
	return svc
}

// seedUniverse builds the synthetic board with plausible IDX prices.
func seedUniverse() []*tickerState {
	seed := []struct {
		code  string
		name  string
		price float64
	}{
		{"BBCA", "Bank Central Asia", 9850},
		{"BBRI", "Bank Rakyat Indonesia", 4620},
		{"BMRI", "Bank Mandiri", 6550},
		{"BYAN", "Bayan Resources", 19500},
		{"TLKM", "Telkom Indonesia", 2980},
		{"ASII", "Astra International", 5150},
		{"TPIA", "Chandra Asri Pacific", 9200},
		{"BBNI", "Bank Negara Indonesia", 5400},
		{"AMMN", "Amman Mineral Internasional", 8900},
		{"ICBP", "Indofood CBP Sukses Makmur", 11500},
		{"UNTR", "United Tractors", 26500},
		{"UNVR", "Unilever Indonesia", 2670},
		{"ADRO", "Adaro Energy Indonesia", 2570},
		{"INDF", "Indofood Sukses Makmur", 6400},
		{"ISAT", "Indosat Ooredoo Hutchison", 11100},
		{"KLBF", "Kalbe Farma", 1550},
		{"SMGR", "Semen Indonesia", 3950},
		{"CPIN", "Charoen Pokphand Indonesia", 4840},
		{"INKP", "Indah Kiat Pulp & Paper", 8350},
		{"PGAS", "Perusahaan Gas Negara", 1590},
		{"PTBA", "Bukit Asam", 2730},
		{"MDKA", "Merdeka Copper Gold", 2180},
		{"ANTM", "Aneka Tambang", 1720},
		{"JSMR", "Jasa Marga", 5250},
		{"EXCL", "XL Axiata", 2270},
		{"INCO", "Vale Indonesia", 3610},
		{"BRPT", "Barito Pacific", 1070},
		{"HMSP", "HM Sampoerna", 751},
		{"GOTO", "GoTo Gojek Tokopedia", 62},
		{"AKRA", "AKR Corporindo", 1420},
		{"BSDE", "Bumi Serpong Damai", 1100},
		{"TOWR", "Sarana Menara Nusantara", 860},
		{"MAPI", "Mitra Adiperkasa", 1450},
		{"ESSA", "ESSA Industries Indonesia", 745},
		{"ACES", "Aspirasi Hidup Indonesia", 735},
		{"ERAA", "Erajaya Swasembada", 404},
	}

	universe := make([]*tickerState, 0, len(seed))
	for _, s := range seed {
		universe = append(universe, &tickerState{
			Code: s.code,
			Name: s.name,
			Open: s.price,
			Last: s.price,
		})
	}
	return universe
}

// -----------------------------------------------------------------------------

// Subscribe reads one request off the stream and pushes record batches until
// the client cancels or the configured frame budget runs out.
func (f *feedService) Subscribe(stream grpc.ServerStream) error {
	var req transport.MSubscribeRequest
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}

	params := models.MSubscriptionParams{Filter: req.Filter, SortKey: req.SortKey}
	if !params.Valid() {
		f.logger.Warning("Rejecting subscription filter=%q sort=%q", req.Filter, req.SortKey)
		return status.Errorf(codes.InvalidArgument, "unknown filter %q or sort key %q", req.Filter, req.SortKey)
	}

	f.logger.Info("Subscriber attached: filter=%s sort=%s", params.Filter, params.SortKey)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	sent := 0
	for {
		batch := f.nextBatch(params)
		if err := stream.SendMsg(batch); err != nil {
			f.logger.Info("Subscriber dropped: %v", err)
			return err
		}

		sent++
		if f.maxFrames > 0 && sent >= f.maxFrames {
			f.logger.Info("Frame budget reached (%d), closing stream", sent)
			return nil
		}

		select {
		case <-stream.Context().Done():
			f.logger.Info("Subscriber cancelled after %d batches", sent)
			return stream.Context().Err()
		case <-ticker.C:
		}
	}
}

// -----------------------------------------------------------------------------

// nextBatch advances the synthetic market one tick and renders the batch the
// subscriber asked for. Occasionally produces an anomalous frame when the
// flake rate is set.
func (f *feedService) nextBatch(params models.MSubscriptionParams) *models.MRecordBatch {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.flakeRate > 0 && f.rng.Float64() < f.flakeRate {
		return &models.MRecordBatch{Code: "500", Message: "upstream feed hiccup"}
	}

	f.advanceLocked()

	depth := len(f.universe)
	if d, ok := filterDepth[params.Filter]; ok && d < depth {
		depth = d
	}

	instruments := make([]models.MInstrument, 0, depth)
	for _, t := range f.universe[:depth] {
		change := t.Last - t.Open
		instruments = append(instruments, models.MInstrument{
			Code:          t.Code,
			Name:          t.Name,
			Price:         t.Last,
			Change:        change,
			PercentChange: change / t.Open * 100,
			TotalVolume:   t.Volume,
			Value:         t.Value,
			TotalFreq:     t.Freq,
		})
	}

	sortInstruments(instruments, params.SortKey)
	return &models.MRecordBatch{Code: models.BatchCodeOK, Instruments: instruments}
}

// advanceLocked applies one random-walk step to every ticker.
func (f *feedService) advanceLocked() {
	for _, t := range f.universe {
		drift := 1 + (f.rng.Float64()-0.5)*0.01
		t.Last = roundTick(t.Last * drift)

		lots := int64(f.rng.Intn(4000) + 100)
		t.Volume += lots * 100
		t.Value += float64(lots*100) * t.Last
		t.Freq += int64(f.rng.Intn(120) + 1)
	}
}

// roundTick snaps a price to the nearest rupiah, floor 1.
func roundTick(p float64) float64 {
	if p < 1 {
		return 1
	}
	return float64(int64(p + 0.5))
}

// -----------------------------------------------------------------------------

// sortInstruments orders a batch the way the exchange board would: by value
// for numeric keys (descending), alphabetically for code.
func sortInstruments(list []models.MInstrument, sortKey string) {
	sort.SliceStable(list, func(i, j int) bool {
		switch sortKey {
		case models.SortByCode:
			return list[i].Code < list[j].Code
		case models.SortByPrice:
			return list[i].Price > list[j].Price
		case models.SortByChange:
			return list[i].Change > list[j].Change
		case models.SortByPercentChange:
			return list[i].PercentChange > list[j].PercentChange
		case models.SortByTotalVolume:
			return list[i].TotalVolume > list[j].TotalVolume
		case models.SortByTotalFreq:
			return list[i].TotalFreq > list[j].TotalFreq
		default:
			return list[i].Value > list[j].Value
		}
	})
}
