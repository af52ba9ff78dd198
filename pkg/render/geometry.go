package render

// Point is a 2D coordinate in the output frame.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// SegmentKind distinguishes the two path primitives a storyline is built
// from.
type SegmentKind string

const (
	SegmentLine   SegmentKind = "line"
	SegmentBezier SegmentKind = "bezier"
)

// Segment is one piece of a storyline path. C1 and C2 are the cubic control
// points and only meaningful for SegmentBezier.
type Segment struct {
	Kind SegmentKind `json:"kind" bson:"kind"`
	From Point       `json:"from" bson:"from"`
	To   Point       `json:"to" bson:"to"`
	C1   Point       `json:"c1,omitempty" bson:"c1,omitempty"`
	C2   Point       `json:"c2,omitempty" bson:"c2,omitempty"`
}

// Label is a text anchor.
type Label struct {
	Text string  `json:"text" bson:"text"`
	X    float64 `json:"x" bson:"x"`
	Y    float64 `json:"y" bson:"y"`
}

// TimeLabel is the horizontal band position of one time bucket. Bands run
// in descending time order, the most recent bucket leftmost.
type TimeLabel struct {
	Label string  `json:"label" bson:"label"`
	PosX  float64 `json:"posX" bson:"posX"`
}

// Storyline is the rendered path of one entity across time. Points holds
// one anchor per participating slice in time order; Exits carries the side
// table (-1 top, +1 bottom, 0 straight) aligned with Points.
type Storyline struct {
	Entity       string    `json:"entity" bson:"entity"`
	Category     string    `json:"category,omitempty" bson:"category,omitempty"`
	Points       []Point   `json:"points" bson:"points"`
	Exits        []int     `json:"exits" bson:"exits"`
	Path         []Segment `json:"path" bson:"path"`
	Start        Point     `json:"start" bson:"start"`
	End          Point     `json:"end" bson:"end"`
	Label        Label     `json:"label" bson:"label"`
	InlineLabels []Label   `json:"inlineLabels,omitempty" bson:"inlineLabels,omitempty"`
}

// BlockArc is one aggregated relation between two members of a block. From
// and To index into the block's Points.
type BlockArc struct {
	From   int     `json:"from" bson:"from"`
	To     int     `json:"to" bson:"to"`
	Weight float64 `json:"weight" bson:"weight"`
}

// HopSection is the collapsible outline section covering one far tier of a
// block, spanning [Top, Bottom] in frame coordinates.
type HopSection struct {
	Top     float64  `json:"top" bson:"top"`
	Bottom  float64  `json:"bottom" bson:"bottom"`
	Members []string `json:"members" bson:"members"`
}

// HopSections holds the far-tier outline sections of a block. A nil section
// means the corresponding far tier is empty.
type HopSections struct {
	Top    *HopSection `json:"top" bson:"top"`
	Bottom *HopSection `json:"bottom" bson:"bottom"`
}

// Block is the container geometry of one contact session. Rounded blocks
// have no far members and degrade to a plain rounded rectangle; otherwise
// the outline stacks the hop sections around the straight run spanning
// [BodyTop, BodyBottom], capped by semicircles of the given radius. Arcs
// carries the session's aggregated relations between member points.
type Block struct {
	SessionID   int         `json:"sessionId" bson:"sessionId"`
	Time        string      `json:"time" bson:"time"`
	X           float64     `json:"x" bson:"x"`
	Width       float64     `json:"width" bson:"width"`
	Top         float64     `json:"top" bson:"top"`
	Bottom      float64     `json:"bottom" bson:"bottom"`
	BodyTop     float64     `json:"bodyTop" bson:"bodyTop"`
	BodyBottom  float64     `json:"bodyBottom" bson:"bodyBottom"`
	Radius      float64     `json:"radius" bson:"radius"`
	Rounded     bool        `json:"rounded" bson:"rounded"`
	Points      []Point     `json:"points" bson:"points"`
	Arcs        []BlockArc  `json:"arcs,omitempty" bson:"arcs,omitempty"`
	HopSections HopSections `json:"hopSections" bson:"hopSections"`
}

// Result is the immutable output contract of a fit. HeightExtents holds the
// [min, max] integer height levels before pixel scaling.
type Result struct {
	BandWidth     float64     `json:"bandWidth" bson:"bandWidth"`
	BlockWidth    float64     `json:"blockWidth" bson:"blockWidth"`
	Ego           string      `json:"ego" bson:"ego"`
	TimeLabels    []TimeLabel `json:"timeLabels" bson:"timeLabels"`
	HeightExtents [2]int      `json:"heightExtents" bson:"heightExtents"`
	Storylines    []Storyline `json:"storylines" bson:"storylines"`
	Blocks        []Block     `json:"blocks" bson:"blocks"`
}
