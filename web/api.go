package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"pctile/catalog"
	"pctile/engine"
	"pctile/estimate"
	"pctile/store"
)

func StartServer(port string, cat *catalog.Catalog) {
	r := initRouter(cat)
	sigolo.Infof("Start server on port %s", port)
	err := http.ListenAndServe(":"+port, r)
	sigolo.FatalCheck(err)
}

type estimateRequest struct {
	Bbox       [4]float64 `json:"bbox"` // minX, minY, maxX, maxY
	Algorithm  string     `json:"algorithm"`
	Resolution float64    `json:"resolution"`
	K          int        `json:"k"`
	Power      float64    `json:"power"`
	Variogram  string     `json:"variogram"`
	Range      float64    `json:"range"`
	Sill       float64    `json:"sill"`
	Nugget     float64    `json:"nugget"`
	ChunkSize  float64    `json:"chunkSize"`
	Buffer     float64    `json:"buffer"`
	Workers    int        `json:"workers"`
}

type catalogResponse struct {
	Extent    [4]float64 `json:"extent"`
	NumFiles  int        `json:"numFiles"`
	NumPoints int64      `json:"numPoints"`
	Files     []string   `json:"files"`
}

func initRouter(cat *catalog.Catalog) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/catalog", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Access-Control-Allow-Origin", "*")

		response := catalogResponse{
			Extent:    [4]float64{cat.Extent.Min[0], cat.Extent.Min[1], cat.Extent.Max[0], cat.Extent.Max[1]},
			NumFiles:  len(cat.Files),
			NumPoints: cat.NumPoints(),
		}
		for _, f := range cat.Files {
			response.Files = append(response.Files, f.Path)
		}

		writer.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(writer).Encode(response)
		if err != nil {
			sigolo.Errorf("Error writing catalog response: %+v", err)
		}
	}).Methods(http.MethodGet)

	r.HandleFunc("/estimate", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Access-Control-Allow-Origin", "*")

		req := estimateRequest{}
		err := json.NewDecoder(request.Body).Decode(&req)
		if err != nil {
			sigolo.Errorf("Error reading HTTP body of request to '/estimate': %+v", err)
			writer.WriteHeader(http.StatusBadRequest)
			_, err = writer.Write([]byte("Error reading HTTP body."))
			if err != nil {
				sigolo.Errorf("Error writing error response: %+v", err)
			}
			return
		}

		applyRequestDefaults(&req, cat)
		sigolo.Infof("Estimate request: algorithm=%s, bbox=%v, resolution=%f", req.Algorithm, req.Bbox, req.Resolution)

		estimator, err := estimatorFromRequest(req)
		if err != nil {
			sigolo.Errorf("Error creating estimator: %+v", err)
			writer.WriteHeader(http.StatusBadRequest)
			_, err = writer.Write([]byte(fmt.Sprintf("Error creating estimator: %+v", err)))
			if err != nil {
				sigolo.Errorf("Error writing error response: %+v", err)
			}
			return
		}

		bbox := orb.Bound{
			Min: orb.Point{req.Bbox[0], req.Bbox[1]},
			Max: orb.Point{req.Bbox[2], req.Bbox[3]},
		}
		clipped := cat.Clip(bbox)
		if clipped == nil {
			writer.WriteHeader(http.StatusNotFound)
			_, err = writer.Write([]byte("No catalog file intersects the requested bbox."))
			if err != nil {
				sigolo.Errorf("Error writing error response: %+v", err)
			}
			return
		}

		processor := estimate.NewGridProcessor(estimator, req.Resolution)
		buffer := req.Buffer
		if buffer < processor.MinBuffer() {
			buffer = processor.MinBuffer()
		}

		result, err := engine.Apply(clipped, processor, engine.Environment{
			Loader:      store.NewLoader(),
			Writer:      store.NewFileWriter(),
			OpenCatalog: store.OpenCatalog,
		}, engine.Options{
			ChunkSize: req.ChunkSize,
			Buffer:    buffer,
			Workers:   req.Workers,
		})
		if err != nil {
			sigolo.Errorf("Error running estimation: %+v", err)
			writer.WriteHeader(http.StatusInternalServerError)
			_, err = writer.Write([]byte(fmt.Sprintf("Error running estimation: %+v", err)))
			if err != nil {
				sigolo.Errorf("Error writing error response: %+v", err)
			}
			return
		}

		if result.Points == nil {
			writer.WriteHeader(http.StatusNotFound)
			_, err = writer.Write([]byte("No points could be estimated for the requested bbox."))
			if err != nil {
				sigolo.Errorf("Error writing error response: %+v", err)
			}
			return
		}

		err = store.WritePointsAsGeoJson(result.Points, writer)
		if err != nil {
			sigolo.Errorf("Error writing estimation result: %+v", err)
			writer.WriteHeader(http.StatusInternalServerError)
			_, err = writer.Write([]byte(fmt.Sprintf("Error writing estimation result: %+v", err)))
			if err != nil {
				sigolo.Errorf("Error writing error response: %+v", err)
			}
			return
		}
	}).Methods(http.MethodPost)

	return r
}

func applyRequestDefaults(req *estimateRequest, cat *catalog.Catalog) {
	if req.Resolution <= 0 {
		req.Resolution = 1
	}
	if req.K == 0 {
		req.K = 10
	}
	if req.Power == 0 {
		req.Power = 2
	}
	if req.Variogram == "" {
		req.Variogram = "spherical"
	}
	if req.Range == 0 {
		req.Range = 50
	}
	if req.Sill == 0 {
		req.Sill = 1
	}
	if req.ChunkSize == 0 {
		// Chunked processing for large requests, a quarter of the extent per side
		req.ChunkSize = (cat.Extent.Max[0] - cat.Extent.Min[0]) / 4
	}
}

func estimatorFromRequest(req estimateRequest) (estimate.Estimator, error) {
	switch req.Algorithm {
	case "tin":
		return estimate.NewTIN(), nil
	case "idw":
		return estimate.NewIDW(req.K, req.Power), nil
	case "kriging":
		model, err := estimate.VariogramModelFromString(req.Variogram)
		if err != nil {
			return nil, err
		}
		return estimate.NewKriging(req.K, model, req.Range, req.Sill, req.Nugget), nil
	}
	return nil, errors.Errorf("Unknown algorithm '%s', supported are tin, idw and kriging", req.Algorithm)
}
