package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&SaveInfo{},
	&DataBody{},
	&ResourceItem{},
	&GenerationRun{},
	&ProbeReport{},
}

////////////////////////
// SAVE STATE
////////////////////////

// SaveInfoID is the primary key of the single save header row.
const SaveInfoID = 1

// SaveInfo is the header of a save: which pack it was generated from and whether
// generation finished.
type SaveInfo struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	Pack      string    `json:"pack" gorm:"size:127"`
	Generated bool      `json:"generated"`
	MapWidth  int       `json:"mapWidth"`
	MapHeight int       `json:"mapHeight"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (*SaveInfo) TableName() string {
	return "save_infos"
}

// DataBody is the persisted scan convergence error of one (type, body) pair.
type DataBody struct {
	Type         string    `json:"type" gorm:"primaryKey;size:16"`
	Body         string    `json:"body" gorm:"primaryKey;size:127"`
	CurrentError float64   `json:"currentError"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (*DataBody) TableName() string {
	return "data_bodies"
}

// ResourceItem holds the derived hidden values of a resource deposit so they stay
// fixed across sessions.
type ResourceItem struct {
	Type          string    `json:"type" gorm:"primaryKey;size:16"`
	Body          string    `json:"body" gorm:"primaryKey;size:127"`
	Name          string    `json:"name" gorm:"primaryKey;size:127"`
	ActualDensity float64   `json:"actualDensity"`
	ActualError   float64   `json:"actualError"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (*ResourceItem) TableName() string {
	return "resource_items"
}

////////////////////////
// HISTORY
////////////////////////

// GenerationRun records the outcome of one raster job.
type GenerationRun struct {
	ID         uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Time       time.Time      `json:"time" gorm:"index:idx_generation_time"`
	Pack       string         `json:"pack" gorm:"size:127"`
	Body       string         `json:"body" gorm:"size:127;index:idx_generation_body"`
	Resource   string         `json:"resource" gorm:"size:127"`
	Coverage   float64        `json:"coverage"`
	DurationMs float32        `json:"durationMs"`
	Skipped    bool           `json:"skipped"`
	Reason     string         `json:"reason" gorm:"size:32"`
	Params     datatypes.JSON `json:"params"`
}

func (*GenerationRun) TableName() string {
	return "generation_runs"
}

// ProbeReport records a single-point raster lookup. Location is stored in EPSG:3857.
type ProbeReport struct {
	ID        uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Time      time.Time  `json:"time"`
	Body      string     `json:"body" gorm:"size:127"`
	Resource  string     `json:"resource" gorm:"size:127"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Opacity   float32    `json:"opacity"`
	Location  geom.Point `json:"location"`
}

func (*ProbeReport) TableName() string {
	return "probe_reports"
}
