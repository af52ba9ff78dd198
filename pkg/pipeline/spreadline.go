package pipeline

import (
	"github.com/matzehuels/spreadline/pkg/contextual"
	"github.com/matzehuels/spreadline/pkg/errors"
	"github.com/matzehuels/spreadline/pkg/layout"
	"github.com/matzehuels/spreadline/pkg/network"
	"github.com/matzehuels/spreadline/pkg/render"
	"github.com/matzehuels/spreadline/pkg/table"
)

// SpreadLine is one pipeline instance: load → center → configure → fit.
// Instances are not safe for concurrent use, but independent instances may
// run in parallel; fit never mutates the loaded data.
type SpreadLine struct {
	data   Data
	loaded bool

	opts Options
	net  *network.Network

	cfg Config

	// lastTables is kept from the most recent fit for overlay queries.
	lastTables *layout.Tables
}

// New creates an empty pipeline instance.
func New() *SpreadLine { return &SpreadLine{} }

// Load validates and takes ownership of the input data. All fatal
// structural problems surface here, before any layout work starts.
func (s *SpreadLine) Load(data Data) error {
	if err := data.Validate(); err != nil {
		return err
	}
	s.data = data
	s.loaded = true
	s.net = nil
	s.lastTables = nil
	return nil
}

// Center constructs the egocentric network around the configured ego. The
// centering check for the contextual profile also runs here so that a later
// Fit cannot fail on it.
func (s *SpreadLine) Center(opts Options) error {
	if !s.loaded {
		return errors.New(errors.ErrCodeInvalidInput, "no data loaded")
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if opts.CenterProfile {
		if err := s.checkEgoProfile(opts.Ego); err != nil {
			return err
		}
	}

	net, err := network.Build(s.data.Topology, opts.networkOptions(&s.data))
	if err != nil {
		return err
	}
	s.opts = opts
	s.net = net
	s.lastTables = nil
	return nil
}

// Configure applies the layout configuration. May be called repeatedly
// between fits.
func (s *SpreadLine) Configure(cfg Config) error {
	if cfg.Minimize != "" && !ValidMinimize[cfg.Minimize] {
		return errors.New(errors.ErrCodeInvalidOption,
			"invalid minimize %q (must be one of: space, line, wiggles)", cfg.Minimize)
	}
	s.cfg = cfg
	return nil
}

// Fit runs the layout phases and returns the geometry. It is a total
// function of the loaded data and configuration: re-running it yields an
// identical, independent result object.
func (s *SpreadLine) Fit() (*render.Result, error) {
	if s.net == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "pipeline is not centered")
	}

	tb := layout.NewTables(s.net)
	layout.Run(tb, layout.Config{
		Minimize:            s.cfg.Minimize,
		SqueezeSameCategory: s.cfg.SqueezeSameCategory,
	})

	res := render.Render(tb,
		render.WithSize(s.opts.Width, s.opts.Height),
		render.WithBandStretch(s.cfg.BandStretch),
		renderBlockWidth(s.opts.BlockWidth),
	)

	if len(s.data.Profiles) > 0 {
		if err := s.applyProfile(tb, res); err != nil {
			return nil, err
		}
	}

	s.lastTables = tb
	return res, nil
}

// Network exposes the constructed network, nil before Center.
func (s *SpreadLine) Network() *network.Network { return s.net }

// Intensity aggregates the loaded scalar context rows against the most
// recent fit.
func (s *SpreadLine) Intensity() (*table.FloatTable, error) {
	if s.lastTables == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no fit has been computed")
	}
	return contextual.Intensity(s.lastTables, s.data.Contexts), nil
}

// applyProfile relocates storyline points to the externally supplied
// positions, then rebuilds the affected paths.
func (s *SpreadLine) applyProfile(tb *layout.Tables, res *render.Result) error {
	var p *contextual.Profile
	if s.data.ProfilesAreStatic() {
		var err error
		p, err = contextual.StaticProfile(tb, s.data.Profiles)
		if err != nil {
			return err
		}
	} else {
		p = contextual.DynamicProfile(tb, s.data.Profiles, s.opts.ProfileMatch)
	}

	if s.opts.NormalizeProfile {
		p.Normalize()
	}
	if s.opts.CenterProfile {
		if err := p.CenterOnEgo(tb); err != nil {
			return err
		}
	}

	for i := range res.Storylines {
		line := &res.Storylines[i]
		e, ok := s.net.Entity(line.Entity)
		if !ok {
			continue
		}
		first := firstPresent(tb, e.Index)
		moved := false
		for j := range line.Points {
			col := first + j
			if p.Set.Get(e.Index, col) == 0 {
				continue
			}
			line.Points[j] = render.Point{
				X: p.X.Get(e.Index, col) * s.opts.Width,
				Y: p.Y.Get(e.Index, col) * s.opts.Height,
			}
			moved = true
		}
		if moved {
			line.RebuildPath()
		}
	}
	return nil
}

// checkEgoProfile rejects centering when the ego's profile position is not
// unique across the raw rows. The check runs at center time so the caller
// never receives a partially built fit.
func (s *SpreadLine) checkEgoProfile(ego string) error {
	var x, y float64
	found := false
	for _, row := range s.data.Profiles {
		if row.Entity != ego {
			continue
		}
		if found && (row.X != x || row.Y != y) {
			return errors.New(errors.ErrCodeAmbiguousCenter,
				"ego %q has more than one profile position", ego)
		}
		x, y, found = row.X, row.Y, true
	}
	if len(s.data.Profiles) > 0 && !found {
		return errors.New(errors.ErrCodeAmbiguousCenter,
			"ego %q has no profile position", ego)
	}
	return nil
}

func firstPresent(tb *layout.Tables, row int) int {
	for c := 0; c < tb.Cols(); c++ {
		if tb.PresentAt(row, c) {
			return c
		}
	}
	return 0
}

// renderBlockWidth keeps the renderer default when no width is configured.
func renderBlockWidth(w float64) render.Option {
	if w == 0 {
		w = render.DefaultBlockWidth
	}
	return render.WithBlockWidth(w)
}
