package smbkit

// Progress receives transfer counters as the request engine advances.
// SetDownloadSize/SetUploadSize announce the expected total once the file
// is opened; the counter callbacks fire after every successful READ_ANDX
// or WRITE_ANDX response with the cumulative byte count.
type Progress interface {
	SetDownloadSize(n int64)
	SetUploadSize(n int64)
	DownloadCounter(n int64)
	UploadCounter(n int64)
}

// CounterProgress is a Progress that just records the latest values.
// The zero value is ready to use.
type CounterProgress struct {
	Size       int64
	Transferred int64
}

func (p *CounterProgress) SetDownloadSize(n int64) { p.Size = n }

func (p *CounterProgress) SetUploadSize(n int64) { p.Size = n }

func (p *CounterProgress) DownloadCounter(n int64) { p.Transferred = n }

func (p *CounterProgress) UploadCounter(n int64) { p.Transferred = n }

// nopProgress discards all updates; used when the caller supplies none.
type nopProgress struct{}

func (nopProgress) SetDownloadSize(int64) {}
func (nopProgress) SetUploadSize(int64)   {}
func (nopProgress) DownloadCounter(int64) {}
func (nopProgress) UploadCounter(int64)   {}
