// Package aging owns the aging-bucket taxonomy: the categorizer that maps a
// days-overdue count to one of six buckets, and the partition range resolver
// used when a backfill is split by bucket.
package aging

// Bucket is one of the six aging classifications. It is always derived from
// days overdue, never stored as ground truth.
type Bucket int

const (
	BucketCurrent  Bucket = iota // not yet due
	Bucket1To30                  // 1-30 days overdue
	Bucket31To60                 // 31-60 days overdue
	Bucket61To90                 // 61-90 days overdue
	Bucket91To120                // 91-120 days overdue
	BucketOver120                // more than 120 days overdue
)

func (b Bucket) String() string {
	switch b {
	case BucketCurrent:
		return "current"
	case Bucket1To30:
		return "1-30"
	case Bucket31To60:
		return "31-60"
	case Bucket61To90:
		return "61-90"
	case Bucket91To120:
		return "91-120"
	case BucketOver120:
		return "120+"
	default:
		return "unknown"
	}
}

// Categorize maps a days-overdue count to its aging bucket. Zero or negative
// counts are current; callers that could not determine a count pass zero.
func Categorize(daysOverdue int) Bucket {
	switch {
	case daysOverdue <= 0:
		return BucketCurrent
	case daysOverdue <= 30:
		return Bucket1To30
	case daysOverdue <= 60:
		return Bucket31To60
	case daysOverdue <= 90:
		return Bucket61To90
	case daysOverdue <= 120:
		return Bucket91To120
	default:
		return BucketOver120
	}
}
