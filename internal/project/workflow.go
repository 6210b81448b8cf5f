package project

import (
	"slices"

	"github.com/refract/refract-studio/internal/sliceutil"
)

func (w *Workflow) UpdateMetaPrompt(generalPrompt string, objs []Obj) {
	w.MetaPrompt = MetaPrompt{GeneralPrompt: generalPrompt, Objs: objs}
}

func (w *Workflow) UpdateTextShots(textShots []TextShot) {
	w.TextShots = textShots
}

func (w *Workflow) UpdateShots(shots []Shot) {
	w.Shots = shots
}

func (w *Workflow) UpdateGeneratedContent(content []VideoBlock) {
	w.GeneratedContent = content
}

// MoveShot moves a shot one position up or down the list. It reports whether
// the order changed; moving past either end or an unknown id is a no-op.
func (w *Workflow) MoveShot(id string, dir Direction) (bool, error) {
	var step int
	switch dir {
	case DirectionUp:
		step = -1
	case DirectionDown:
		step = 1
	default:
		return false, ErrInvalidDirection
	}

	i := slices.IndexFunc(w.Shots, func(s Shot) bool { return s.ID == id })
	if i < 0 || i+step < 0 || i+step >= len(w.Shots) {
		return false, nil
	}
	w.Shots = sliceutil.MoveItem(w.Shots, i, i+step)
	return true, nil
}

// MoveTextShot moves a text block one position left or right.
func (w *Workflow) MoveTextShot(id string, dir Direction) (bool, error) {
	var step int
	switch dir {
	case DirectionLeft:
		step = -1
	case DirectionRight:
		step = 1
	default:
		return false, ErrInvalidDirection
	}

	i := slices.IndexFunc(w.TextShots, func(s TextShot) bool { return s.ID == id })
	if i < 0 || i+step < 0 || i+step >= len(w.TextShots) {
		return false, nil
	}
	w.TextShots = sliceutil.MoveItem(w.TextShots, i, i+step)
	return true, nil
}

// normalize replaces nil lists with empty ones so stored payloads encode as
// [] and fills in missing item ids.
func (w *Workflow) normalize() {
	if w.MetaPrompt.Objs == nil {
		w.MetaPrompt.Objs = []Obj{}
	}
	for i := range w.MetaPrompt.Objs {
		if w.MetaPrompt.Objs[i].ID == "" {
			w.MetaPrompt.Objs[i].ID = NewID()
		}
		if w.MetaPrompt.Objs[i].UploadedFiles == nil {
			w.MetaPrompt.Objs[i].UploadedFiles = []UploadedFile{}
		}
	}
	if w.TextShots == nil {
		w.TextShots = []TextShot{}
	}
	for i := range w.TextShots {
		if w.TextShots[i].ID == "" {
			w.TextShots[i].ID = NewID()
		}
		if w.TextShots[i].ReferencedAssets == nil {
			w.TextShots[i].ReferencedAssets = []string{}
		}
	}
	if w.Shots == nil {
		w.Shots = []Shot{}
	}
	for i := range w.Shots {
		if w.Shots[i].ID == "" {
			w.Shots[i].ID = NewID()
		}
	}
	if w.GeneratedContent == nil {
		w.GeneratedContent = []VideoBlock{}
	}
	for i := range w.GeneratedContent {
		if w.GeneratedContent[i].ID == "" {
			w.GeneratedContent[i].ID = NewID()
		}
		if w.GeneratedContent[i].SelectedTools == nil {
			w.GeneratedContent[i].SelectedTools = []string{}
		}
	}
}
