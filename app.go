package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/strata/pkg/config"
	"github.com/chazu/strata/pkg/decompose"
	"github.com/chazu/strata/pkg/engine"
	"github.com/chazu/strata/pkg/kernel"
	"github.com/chazu/strata/pkg/kernel/sdfx"
	"github.com/chazu/strata/pkg/layout"
	"github.com/chazu/strata/pkg/logging"
	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/modelfile"
	"github.com/chazu/strata/pkg/store"
	"github.com/chazu/strata/pkg/tessellate"
	"github.com/chazu/strata/pkg/wall"
)

// functionColors assigns a colour to each layer function. Merged walls and
// unknown functions cycle through colorPalette.
var functionColors = map[string]string{
	wall.Structure.String():      "#95A5A6",
	wall.Substrate.String():      "#D35400",
	wall.Insulation.String():     "#F1C40F",
	wall.Finish1.String():        "#ECF0F1",
	wall.Finish2.String():        "#BDC3C7",
	wall.Membrane.String():       "#2C3E50",
	wall.StructuralDeck.String(): "#7F8C8D",
}

var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// ErrScriptOutput is returned when a decomposition of a script model has
// nowhere to be written.
var ErrScriptOutput = errors.New("script models cannot be written back; pass --out")

// App ties the engine, the stores, the decomposer and the mesh kernel
// together. The CLI commands are thin wrappers around it.
type App struct {
	cfg    *config.Config
	log    *zap.Logger
	engine *engine.Engine
	kernel kernel.Kernel
}

// MeshData is the JSON form of a mesh.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Function string    `json:"function,omitempty"`
	Color    string    `json:"color"`
}

// EvalErrorData is the JSON form of an evaluation problem.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the output of evaluating a model into meshes.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates an App using cfg (nil means defaults) and the sdfx kernel.
func NewApp(cfg *config.Config, log *zap.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	return &App{
		cfg:    cfg,
		log:    logging.OrNop(log),
		engine: engine.NewEngine(cfg.Engine.Timeout),
		kernel: sdfx.New(),
	}
}

func newEvalResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

// Evaluate runs model script source and meshes the walls it describes.
func (a *App) Evaluate(source string, opts tessellate.Options) EvalResult {
	result := newEvalResult()

	checked, err := a.engine.Check(source)
	if err != nil {
		a.log.Error("evaluate failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, w := range checked.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message})
	}
	if !checked.OK() {
		for _, e := range checked.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	a.mesh(checked.Document, opts, &result)
	return result
}

// Mesh meshes the model stored at path.
func (a *App) Mesh(ctx context.Context, path string, opts tessellate.Options) (EvalResult, error) {
	doc, err := modelfile.Read(ctx, path, a.engine)
	if err != nil {
		return EvalResult{}, err
	}
	result := newEvalResult()
	for _, f := range model.Validate(doc) {
		d := EvalErrorData{Message: f.Error()}
		if f.Severity == model.SeverityError {
			result.Errors = append(result.Errors, d)
		} else {
			result.Warnings = append(result.Warnings, d)
		}
	}
	if len(result.Errors) > 0 {
		return result, nil
	}
	a.mesh(&doc, opts, &result)
	return result, nil
}

func (a *App) mesh(doc *model.Document, opts tessellate.Options, result *EvalResult) {
	_, skipped := tessellate.Parts(doc)
	for _, err := range skipped {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: err.Error()})
	}

	if opts.Log == nil {
		opts.Log = a.log
	}
	meshes, err := tessellate.Tessellate(doc, a.kernel, opts)
	if err != nil {
		a.log.Error("tessellate failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return
	}
	for i, m := range meshes {
		color, ok := functionColors[m.Function]
		if !ok {
			color = colorPalette[i%len(colorPalette)]
		}
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Function: m.Function,
			Color:    color,
		})
	}
}

func (a *App) decomposer(tx store.Transactor) (*decompose.Decomposer, error) {
	opts, err := decompose.OptionsFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return decompose.New(tx, opts, a.log), nil
}

// writeBack stores the model held by backend. SQLite models opened in place
// are already up to date unless out names another file.
func (a *App) writeBack(ctx context.Context, backend store.Loader, path, out string) error {
	if out == "" {
		out = path
	}
	if out == path {
		format, err := modelfile.DetectFormat(path)
		if err != nil {
			return err
		}
		if format == modelfile.SQLite {
			return nil
		}
	}
	doc, err := backend.Document(ctx)
	if err != nil {
		return err
	}
	a.log.Debug("writing model", zap.String("path", out))
	return modelfile.Save(ctx, out, doc)
}

// checkWritable fails early when a command that changes the model could
// not store its result.
func checkWritable(path, out string) error {
	format, err := modelfile.DetectFormat(path)
	if err != nil {
		return err
	}
	if format == modelfile.Script && out == "" {
		return ErrScriptOutput
	}
	if out != "" {
		if _, err := modelfile.DetectFormat(out); err != nil {
			return err
		}
	}
	return nil
}

// Explode decomposes the walls named by ids, or every wall when ids is
// empty, and writes the model to out (or back to path).
func (a *App) Explode(ctx context.Context, path string, ids []wall.ID, out string) (decompose.BatchReport, error) {
	if err := checkWritable(path, out); err != nil {
		return decompose.BatchReport{}, err
	}
	backend, err := modelfile.Open(ctx, path, a.engine)
	if err != nil {
		return decompose.BatchReport{}, err
	}
	defer backend.Close()

	if len(ids) == 0 {
		doc, err := backend.Document(ctx)
		if err != nil {
			return decompose.BatchReport{}, err
		}
		for _, w := range doc.Walls {
			ids = append(ids, w.ID)
		}
	}

	dec, err := a.decomposer(backend)
	if err != nil {
		return decompose.BatchReport{}, err
	}
	report, err := dec.Batch(ctx, ids)
	if err != nil {
		return report, err
	}
	if err := a.writeBack(ctx, backend, path, out); err != nil {
		return report, fmt.Errorf("save decomposed model: %w", err)
	}
	return report, nil
}

// Purge deletes generated types that no wall uses any more.
func (a *App) Purge(ctx context.Context, path, out string) (decompose.PurgeResult, error) {
	if err := checkWritable(path, out); err != nil {
		return decompose.PurgeResult{}, err
	}
	backend, err := modelfile.Open(ctx, path, a.engine)
	if err != nil {
		return decompose.PurgeResult{}, err
	}
	defer backend.Close()

	dec, err := a.decomposer(backend)
	if err != nil {
		return decompose.PurgeResult{}, err
	}
	res, err := dec.PurgeUnusedGeneratedTypes(ctx)
	if err != nil {
		return res, err
	}
	if err := a.writeBack(ctx, backend, path, out); err != nil {
		return res, fmt.Errorf("save purged model: %w", err)
	}
	return res, nil
}

// Junctions lists the junctions at the ends of wall id. A non-positive
// tolerance uses the configured one.
func (a *App) Junctions(ctx context.Context, path string, id wall.ID, tolerance float64) ([]wall.Junction, error) {
	backend, err := modelfile.Open(ctx, path, a.engine)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	dec, err := a.decomposer(backend)
	if err != nil {
		return nil, err
	}
	return dec.DetectJunctions(ctx, id, tolerance)
}

// Layers resolves the layer centerlines of wall id without changing the
// model.
func (a *App) Layers(ctx context.Context, path string, id wall.ID) ([]wall.LayerGeometry, error) {
	doc, err := modelfile.Read(ctx, path, a.engine)
	if err != nil {
		return nil, err
	}
	w, ok := doc.WallByID(id)
	if !ok {
		return nil, fmt.Errorf("wall %s: %w", id, store.ErrNotFound)
	}
	t, ok := doc.TypeByID(w.Type)
	if !ok {
		return nil, fmt.Errorf("wall %s: type %s: %w", id, w.Type, store.ErrNotFound)
	}
	if err := model.CheckDecomposable(*w, *t); err != nil {
		return nil, err
	}
	return layout.Resolve(model.Spec(*w, *t))
}

// Validate reads the model at path and returns its validation findings.
func (a *App) Validate(ctx context.Context, path string) ([]model.ValidationError, error) {
	doc, err := modelfile.Read(ctx, path, a.engine)
	if err != nil {
		return nil, err
	}
	return model.Validate(doc), nil
}
