package mfa

import (
	"encoding/binary"
	"encoding/hex"
	"hash/crc32"
	"testing"
)

// Container fixtures generated with the reference tooling. The structured
// container holds a MAP with two boards, a three-entry TOC (the second
// image split across two group-7 entries), and an xz-compressed DATA
// section; the legacy container is a metadata stream followed by two
// firmware streams.
const (
	structuredContainerHex = "4d464152000000010000000000000000010000000000007c4d545f303030303030303531350000000000000000000000000000000000000001000000000000000100000031342e33320000004d545f303030303030303031310000000000000000000000000000000000000002000004000000180107000031362e3335000000000000300107000031362e3335000000deadbeef0200000000000048000000000000014401000000000e002003f2000000000000000001440000007c01070000000e002003f2000000000000000001c00000009601070000000e002003f20000000000000300000100000214fd377a585a0000016922de360200210116000000742fe5a3e0025501d55d00269504d015947e1064f2e6f173347f1a9c8152f709ca71835ea0e2ba93e325f3cfaae84d29f5fb97bc3d86d28dfd4e8e7d3828b0f285c61aa0b858380810c3e61dd0d6ecb6914caed5764a4c98e104ea30d1fd91392b92b4bf94cf69df499951f01747d3f2ebd34d746d593e63a2fb1673c43aa5eb7a535389a3647ae0ed0b2ca7bec75b8810ad64692b5938bcdf5eebcd03eca4353c22ccbec2b86742f5b94bf86132394ad616efb6b86d2e8d432cfc6a69bfd253adb36fa7f7c87ed6b86cb15126ed7d2290c8ed1385cac3b6bb537ad6c173f4f64e118a84eee8d6d45b919a7e13c3360cea3fdb29772fd2720a3ad642429b27d2dd0ef612e3121637bc4c0264f668f1891a528e6bc9a488a2bdfa8e416d4264f3af943e770742f6c75e57b0b80ba82fff045106ef42046d3f04611d22625a5b4580f44ea1c014a330066a8d9938e7a40a187fd4fa56f9a5d1f121390b1772201f2bc770f435fe1f49c6b34e1666b624d30e783af4ec6e1a8c07ada7fbd2ce490ebc6bc8fa762427d8652814ce49b80c2d76f44c1dd352fab872422c5f7552d5618fc596e9d142509c3163e291034d5f63a22424907df0af279c31eb2424deb0ac425bffbb0c913f99b15e69efbde75ee71a0bddf1e1056d294419376b748b206e000000000ea1e1c00001ed03d6040000c8e8192a3e300d8b020000000001595aaa5b16c6"

	structuredBadCRCHex = "4d464152000000010000000000000000010000000000007c4d545f303030303030303531350000000000000000000000000000000000000001000000000000000100000031342e33320000004d545f303030303030303031310000000000000000000000000000000000000002000004000000180107000031362e3335000000000000300107000031362e3335000000deadbeef0200000000000048000000000000014401000000000e002003f2000000000000000001440000007c01070000000e002003f2000000000000000001c00000009601070000000e002003f20000000000000300000100000214fd377a585a0000016922de360200210116000000742fe5a3e0025501d55d00269504d015947e1064f2e6f173347f1a9c8152f709ca71835ea0e2ba93e325f3cfaae84d29f5fb97bc3d86d28dfd4e8e7d3828b0f285c61aa0b858380810c3e61dd0d6ecb6914caed5764a4c98e104ea30d1fd91392b92b4bf94cf69df499951f01747d3f2ebd34d746d593e63a2fb1673c43aa5eb7a535389a3647ae0ed0b2ca7bec75b8810ad64692b5938bcdf5eebcd03eca4353c22ccbec2b86742f5b94bf86132394ad616efb6b86d2e8d432cfc6a69bfd253adb36fa7f7c87ed6b86cb15126ed7d2290c8ed1385cac3b6bb537ad6c173f4f64e118a84eee8d6d45b919a7e13c3360cea3fdb29772fd2720a3ad642429b27d2dd0ef612e3121637bc4c0264f668f1891a528e6bc9a488a2bdfa8e416d4264f3af943e770742f6c75e57b0b80ba82fff045106ef42046d3f04611d22625a5b4580f44ea1c014a330066a8d9938e7a40a187fd4fa56f9a5d1f121390b1772201f2bc770f435fe1f49c6b34e1666b624d30e783af4ec6e1a8c07ada7fbd2ce490ebc6bc8fa762427d8652814ce49b80c2d76f44c1dd352fab872422c5f7552d5618fc596e9d142509c3163e291034d5f63a22424907df0af279c31eb2424deb0ac425bffbb0c913f99b15e69efbde75ee71a0bddf1e1056d294419376b748b206e000000000ea1e1c00001ed03d6040000c8e8192a3e300d8b020000000001595a55a4e939"

	// DATA section declares 0x10000 bytes with only a handful remaining.
	structuredTruncatedHex = "4d464152000000010000000000000000010000000000007c4d545f303030303030303531350000000000000000000000000000000000000001000000000000000100000031342e33320000004d545f303030303030303031310000000000000000000000000000000000000002000004000000180107000031362e3335000000000000300107000031362e3335000000deadbeef03000000000100000000000000000000000000000000000000000000000000000000000000000000cb30c13d"

	legacyContainerHex = "fd377a585a0000016922de360200210116000000742fe5a3e0007e00595d00269508414ce44d2334f84c367e800169be6426a48fd614ab32f2c330398e6e54b15bb7e121b8f90aeb04e9e8d2c328ca0bc993b1e62b5c0c88562e2deabec6af316de1c4462da51115319b010546f049078801e23c840fc00000000000da54035e0001717f319118d69042990d010000000001595afd377a585a0000016922de360200210116000000742fe5a3e0021701035d00269504d015947e1064f2e6f173347f1a9c8152f709ca7185e721d88c8d0bde8132e38e9bc349b3218580484b04c867b6b85ad1ad2924dfd327672fb12e0cf5ad30c6b7b0b8ca97f03369b36099a0476e7c7a7d7007c03b4aeae7059edd4a6d68941177e6581e061a2236124d6625f182f9632d9ca62ab6b5e3a119a3d200770090c3e7ab348fa37cdd4cf9603eed973d538c31d8dcc264c28c279d1d6fdd55a0b1e3487182f56d2daf886d332053928618eef9f65bb2fd9f1c0af20c7c89f2b1f0a979db961e97ac660a9dc9ad8a3f11b2d86995954544ec77c8f50d2ccddaee6817471d5a52694d6baa1941626708a1957bd8bef97928e8bd2f1dd1f21d5e0bbc0000000026216d2c00019b0298040000aa00c9b13e300d8b020000000001595afd377a585a0000016922de360200210116000000742fe5a3e0021701025d00269504d015947e1064f2e6f173347f1a9c8153f0d8e7f197d9dab20cf6cc8d355844f40a8b63eca9d91042d8891e225bac172106939081b7a8cf317ef02474727fdfeb84451aa17cfd8586356804a69bfe7061f8e93239f1f6671150ca4ff6b4359c2123221daf5a838e945ee42394ff35ede0e3f0396ac9a646e2e6b18af373cb2d344457ce99e2b294a71563081ed70f530ee18bbaaa7bedcc13c2ba398d92f8d2fe56e95b578e6e401b052fff539493b8246ebb65a52a37d27518c7db5dd2c8a6c5f6f9cada05cc7312b7bdd1c6cc2eebb04d32bd340444819391f3c7d595b0f8a71251d83b1670d9babfdeb08fcead9d2ddf9ccc3dea90f1e10e116fd8a7a800000000e6e81c7400019a02980400000fd3957a3e300d8b020000000001595a"

	hostBinaryHex = "7f454c469090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090909090504b0304676172626167652d6e6f742d612d7a697000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000504b0304140000000000d1791e5dc681af8d0f0000000f0000000f000000626f6f742f726561646d652e7478746669726d776172652062756e646c65504b0304140000000000d1791e5d1cdf4421040300000403000008000000737263732e6d66614d464152000000010000000000000000010000000000007c4d545f303030303030303531350000000000000000000000000000000000000001000000000000000100000031342e33320000004d545f303030303030303031310000000000000000000000000000000000000002000004000000180107000031362e3335000000000000300107000031362e3335000000deadbeef0200000000000048000000000000014401000000000e002003f2000000000000000001440000007c01070000000e002003f2000000000000000001c00000009601070000000e002003f20000000000000300000100000214fd377a585a0000016922de360200210116000000742fe5a3e0025501d55d00269504d015947e1064f2e6f173347f1a9c8152f709ca71835ea0e2ba93e325f3cfaae84d29f5fb97bc3d86d28dfd4e8e7d3828b0f285c61aa0b858380810c3e61dd0d6ecb6914caed5764a4c98e104ea30d1fd91392b92b4bf94cf69df499951f01747d3f2ebd34d746d593e63a2fb1673c43aa5eb7a535389a3647ae0ed0b2ca7bec75b8810ad64692b5938bcdf5eebcd03eca4353c22ccbec2b86742f5b94bf86132394ad616efb6b86d2e8d432cfc6a69bfd253adb36fa7f7c87ed6b86cb15126ed7d2290c8ed1385cac3b6bb537ad6c173f4f64e118a84eee8d6d45b919a7e13c3360cea3fdb29772fd2720a3ad642429b27d2dd0ef612e3121637bc4c0264f668f1891a528e6bc9a488a2bdfa8e416d4264f3af943e770742f6c75e57b0b80ba82fff045106ef42046d3f04611d22625a5b4580f44ea1c014a330066a8d9938e7a40a187fd4fa56f9a5d1f121390b1772201f2bc770f435fe1f49c6b34e1666b624d30e783af4ec6e1a8c07ada7fbd2ce490ebc6bc8fa762427d8652814ce49b80c2d76f44c1dd352fab872422c5f7552d5618fc596e9d142509c3163e291034d5f63a22424907df0af279c31eb2424deb0ac425bffbb0c913f99b15e69efbde75ee71a0bddf1e1056d294419376b748b206e000000000ea1e1c00001ed03d6040000c8e8192a3e300d8b020000000001595aaa5b16c6504b01021403140000000000d1791e5dc681af8d0f0000000f0000000f0000000000000000000000800100000000626f6f742f726561646d652e747874504b01021403140000000000d1791e5d1cdf4421040300000403000008000000000000000000000080013c000000737263732e6d6661504b0506000000000200020073000000660300000000cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
)

func mustHexT(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad fixture hex: %v", err)
	}
	return b
}

func genMagic(gen Generation) []byte {
	for _, s := range signatures {
		if s.gen == gen {
			return append([]byte(nil), s.magic...)
		}
	}
	return nil
}

// The structured fixture's DATA section decompresses to imageA, then the
// two parts of imageB back-to-back.
func imageA() []byte {
	b := genMagic(GenFS4)
	for i := range 300 {
		b = append(b, byte(i*7))
	}
	return b
}

func imageBPart1() []byte {
	b := genMagic(GenFS5)
	for i := range 100 {
		b = append(b, byte(i*3))
	}
	return b
}

func imageBPart2() []byte {
	var b []byte
	for i := range 150 {
		b = append(b, byte(i*11))
	}
	return b
}

// buildContainer frames the given sections (uncompressed) with a valid
// header and CRC32 trailer, for tests that need layouts the canned fixtures
// do not cover.
func buildContainer(t *testing.T, sections ...*Section) []byte {
	t.Helper()
	buf := append([]byte(Magic), 0, 0, 0, Version, 0, 0, 0, 0, 0, 0, 0, 0)
	for _, s := range sections {
		hdr := [sectionHeaderLen]byte{0: byte(s.Type), 3: s.Flags}
		binary.BigEndian.PutUint32(hdr[4:], uint32(len(s.Data)))
		buf = append(buf, hdr[:]...)
		buf = append(buf, s.Data...)
	}
	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], crc32.ChecksumIEEE(buf))
	return append(buf, trailer[:]...)
}
