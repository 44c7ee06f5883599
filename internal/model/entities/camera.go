package entities

// Recording is the metadata of a stored clip.
type Recording struct {
	Name string `json:"name"`
	Time string `json:"time"`
	Size string `json:"size"`
}

type Camera struct {
	Online     bool        `json:"online"`
	Recording  bool        `json:"recording"`
	Recordings []Recording `json:"recordings"`
}

func (c *Camera) ToggleRecording() {
	c.Recording = !c.Recording
}
