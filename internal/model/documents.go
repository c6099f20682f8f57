package model

import "time"

// FolderResponse is the payload of the remote folder listing.
type FolderResponse struct {
	Success       bool          `json:"success"`
	Message       string        `json:"message"`
	DocumentsPath string        `json:"documentsPath"`
	Folders       FolderBuckets `json:"folders"`
	Summary       FolderSummary `json:"summary"`
}

type FolderBuckets struct {
	Accepted []FolderGroup `json:"accepted"`
	Rejected []FolderGroup `json:"rejected"`
}

type FolderSummary struct {
	TotalAcceptedFolders int `json:"totalAcceptedFolders"`
	TotalRejectedFolders int `json:"totalRejectedFolders"`
	TotalFolders         int `json:"totalFolders"`
}

type FolderGroup struct {
	Date         string   `json:"date"`
	Path         string   `json:"path"`
	Senders      []Sender `json:"senders"`
	TotalSenders int      `json:"totalSenders"`
	TotalFiles   int      `json:"totalFiles"`
}

type Sender struct {
	SenderName   string         `json:"senderName"`
	Path         string         `json:"path"`
	FileCount    int            `json:"fileCount"`
	Files        []DocumentFile `json:"files"`
	LastModified time.Time      `json:"lastModified"`
	CreatedAt    time.Time      `json:"createdAt"`
}

type DocumentFile struct {
	Filename      string    `json:"filename"`
	Path          string    `json:"path"`
	Size          int64     `json:"size"`
	SizeFormatted string    `json:"sizeFormatted"`
	LastModified  time.Time `json:"lastModified"`
	CreatedAt     time.Time `json:"createdAt"`
}

type StatusCounts struct {
	Approved   int
	Processing int
	Pending    int
	Rejected   int
}

// Counts totals files per bucket. The remote API has no notion of processing
// or pending documents, so those stay zero.
func (f *FolderResponse) Counts() StatusCounts {
	var c StatusCounts
	if f == nil {
		return c
	}
	for _, g := range f.Folders.Accepted {
		c.Approved += g.TotalFiles
	}
	for _, g := range f.Folders.Rejected {
		c.Rejected += g.TotalFiles
	}
	return c
}

// DocumentRow flattens a file with its sender and bucket for table views.
type DocumentRow struct {
	File     DocumentFile
	Sender   string
	Accepted bool
}

// Rows lists accepted files first, then rejected ones, in listing order.
func (f *FolderResponse) Rows() []DocumentRow {
	if f == nil {
		return nil
	}
	var rows []DocumentRow
	add := func(groups []FolderGroup, accepted bool) {
		for _, g := range groups {
			for _, s := range g.Senders {
				for _, file := range s.Files {
					rows = append(rows, DocumentRow{File: file, Sender: s.SenderName, Accepted: accepted})
				}
			}
		}
	}
	add(f.Folders.Accepted, true)
	add(f.Folders.Rejected, false)
	return rows
}
