// Package project holds named projects: the prompt-assembly workflow payload
// edited by the dashboard wizard and an optional saved clip timeline.
package project

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/refract/refract-studio/internal/timeline"
)

var (
	ErrNotFound         = errors.New("project not found")
	ErrInvalidName      = errors.New("project name is required")
	ErrInvalidDirection = errors.New("invalid move direction")
)

// Workflow payload types use the dashboard's camelCase field names.

type UploadedFile struct {
	FilePath    string `json:"filePath"`
	Description string `json:"description"`
}

type Obj struct {
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	UploadedFiles []UploadedFile `json:"uploadedFiles"`
}

type MetaPrompt struct {
	GeneralPrompt string `json:"generalPrompt"`
	Objs          []Obj  `json:"objs"`
}

type TextShot struct {
	ID               string   `json:"id"`
	Content          string   `json:"content"`
	ReferencedAssets []string `json:"referencedAssets"`
}

type Shot struct {
	ID                string `json:"id"`
	Description       string `json:"description"`
	ReferencedContent string `json:"referencedContent"`
	TransitionPrompt  string `json:"transitionPrompt"`
}

type Parameters struct {
	Quality  string `json:"quality"`
	Duration string `json:"duration"`
	Style    string `json:"style"`
	Mood     string `json:"mood"`
}

type VideoBlock struct {
	ID            string     `json:"id"`
	TextInput     string     `json:"textInput"`
	Parameters    Parameters `json:"parameters"`
	SelectedTools []string   `json:"selectedTools"`
}

// Workflow is the wizard state: MetaPrompt, Text Blocks, Shots and
// Generated Content. It is a plain value; whoever holds it owns it.
type Workflow struct {
	MetaPrompt       MetaPrompt   `json:"metaPrompt"`
	TextShots        []TextShot   `json:"textShots"`
	Shots            []Shot       `json:"shots"`
	GeneratedContent []VideoBlock `json:"generatedContent"`
}

// Project is a named workflow. The workflow fields are flattened into the
// project's JSON object.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Workflow
	Timeline        []timeline.Clip `json:"timeline,omitempty"`
	TimelineSavedAt *time.Time      `json:"timelineSavedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

func NewID() string {
	return uuid.NewString()
}
