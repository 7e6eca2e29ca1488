// Package storage manages the export output directory.
//
// Documents and images are written atomically through a temporary file and a
// rename, so a checkpoint interrupted mid-write never leaves a truncated file
// behind; the previous version stays in place until the new one is complete.
//
// Usage:
//
//	manager, err := storage.NewManager("twitter_bookmarks", true)
//	if err != nil {
//	    return err
//	}
//
//	if !manager.HasImage(name) {
//	    err = manager.SaveImage(name, bytes.NewReader(body))
//	}
//	err = manager.WriteDocument("bookmarks_001_2024-01-03_to_2024-01-02.md", doc)
package storage
