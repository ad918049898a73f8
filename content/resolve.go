package content

import "github.com/samber/mo"

// Direction selects which neighbor AdjacentLecture resolves.
type Direction int

const (
	Previous Direction = iota
	Next
)

// Position locates a lecture inside the content tree.
type Position struct {
	Section      *Section
	Lecture      *Lecture
	SectionIndex int
	LectureIndex int
}

// FindLecture locates a lecture by ID, scanning sections and lectures in
// declared order.
func (c *Course) FindLecture(id string) mo.Option[Position] {
	for si, s := range c.Sections {
		for li, l := range s.Lectures {
			if l.LectureID == id {
				return mo.Some(Position{
					Section:      s,
					Lecture:      l,
					SectionIndex: si,
					LectureIndex: li,
				})
			}
		}
	}
	return mo.None[Position]()
}

// AdjacentLecture resolves the neighbor of the given lecture, crossing section
// boundaries: the lecture after the last of section N is the first of section
// N+1. At the global first/last lecture it returns None; that is a terminal
// boundary, not an error.
func (c *Course) AdjacentLecture(currentID string, dir Direction) mo.Option[*Lecture] {
	pos, ok := c.FindLecture(currentID).Get()
	if !ok {
		return mo.None[*Lecture]()
	}

	switch dir {
	case Next:
		if pos.LectureIndex+1 < len(pos.Section.Lectures) {
			return mo.Some(pos.Section.Lectures[pos.LectureIndex+1])
		}
		for si := pos.SectionIndex + 1; si < len(c.Sections); si++ {
			if len(c.Sections[si].Lectures) > 0 {
				return mo.Some(c.Sections[si].Lectures[0])
			}
		}
	case Previous:
		if pos.LectureIndex > 0 {
			return mo.Some(pos.Section.Lectures[pos.LectureIndex-1])
		}
		for si := pos.SectionIndex - 1; si >= 0; si-- {
			lectures := c.Sections[si].Lectures
			if len(lectures) > 0 {
				return mo.Some(lectures[len(lectures)-1])
			}
		}
	}

	return mo.None[*Lecture]()
}

// FirstIncompleteLecture returns the first lecture not yet completed, in
// declared order. Used to redirect a bare course entry to the resume point.
// Returns None when every lecture is complete; the caller falls back to the
// first lecture.
func (c *Course) FirstIncompleteLecture() mo.Option[*Lecture] {
	for _, s := range c.Sections {
		for _, l := range s.Lectures {
			if !l.IsCompleted {
				return mo.Some(l)
			}
		}
	}
	return mo.None[*Lecture]()
}

// FirstLecture returns the very first lecture of the course, if any.
func (c *Course) FirstLecture() mo.Option[*Lecture] {
	for _, s := range c.Sections {
		if len(s.Lectures) > 0 {
			return mo.Some(s.Lectures[0])
		}
	}
	return mo.None[*Lecture]()
}
